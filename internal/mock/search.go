package mock

import (
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/search"
)

var _ search.Speller = (*Speller)(nil)

// Speller is a mock implementation of search.Speller.
type Speller struct {
	CorrectTextFn func(text string) string
}

func (s *Speller) CorrectText(text string) string {
	return s.CorrectTextFn(text)
}

// IdentitySpeller returns a Speller that leaves text unchanged.
func IdentitySpeller() *Speller {
	return &Speller{CorrectTextFn: func(text string) string { return text }}
}

var _ search.Library = (*Library)(nil)

// Library is a mock implementation of search.Library.
type Library struct {
	FolderPathFn func(folder models.Folder) string
	ListPDFsFn   func(folder models.Folder) ([]string, error)
}

func (l *Library) FolderPath(folder models.Folder) string {
	return l.FolderPathFn(folder)
}

func (l *Library) ListPDFs(folder models.Folder) ([]string, error) {
	return l.ListPDFsFn(folder)
}
