// Package models defines core data structures for folders, queries, and answers.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// PDFExtension is the (case-sensitive) suffix a stored document must carry.
const PDFExtension = ".pdf"

// Folder name prefixes under the library root.
const (
	YearPrefix     = "Year_"
	SemesterPrefix = "Semester_"
)

// ErrInvalidFolder is returned when a year or semester identifier is unusable as a path segment.
var ErrInvalidFolder = errors.New("invalid folder")

// Identifier is a year or semester value. JSON accepts both strings and numbers
// so that {"year": 2} and {"year": "2"} address the same folder.
type Identifier string

// UnmarshalJSON decodes a JSON string or number into the identifier.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Identifier(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = Identifier(n.String())
	return nil
}

// String returns the identifier value.
func (id Identifier) String() string { return string(id) }

// Folder is a Document Folder, addressed by year and semester.
type Folder struct {
	Year     Identifier `json:"year"`
	Semester Identifier `json:"semester"`
}

// Path returns root/Year_<year>/Semester_<semester>. It has no side effects.
func (f Folder) Path(root string) string {
	return filepath.Join(root, YearPrefix+string(f.Year), SemesterPrefix+string(f.Semester))
}

// RelPath returns the folder path relative to the library root.
func (f Folder) RelPath() string {
	return f.Path("")
}

// IsZero reports whether year or semester is missing.
func (f Folder) IsZero() bool {
	return f.Year == "" || f.Semester == ""
}

// Validate checks that both identifiers are present and safe to use as a single path segment.
func (f Folder) Validate() error {
	if f.IsZero() {
		return fmt.Errorf("%w: year and semester are required", ErrInvalidFolder)
	}
	if err := validateSegment("year", string(f.Year)); err != nil {
		return err
	}
	return validateSegment("semester", string(f.Semester))
}

func validateSegment(name, v string) error {
	if v == "." || v == ".." || strings.Contains(v, "..") {
		return fmt.Errorf("%w: %s %q", ErrInvalidFolder, name, v)
	}
	if strings.ContainsAny(v, `/\`) || strings.ContainsRune(v, 0) {
		return fmt.Errorf("%w: %s %q contains a path separator", ErrInvalidFolder, name, v)
	}
	return nil
}

// IsPDFName reports whether name ends in the PDF extension. The match is case-sensitive.
func IsPDFName(name string) bool {
	return strings.HasSuffix(name, PDFExtension)
}
