package spell

import (
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"
)

const (
	textField    = "text"
	spellAnalyze = "spell"
)

// BleveDictionary is a TermDictionary backed by a Bleve index of document texts plus a
// static lexicon. A term's frequency is the number of indexed documents containing it
// plus its lexicon count, so words that appear in course documents are never treated as
// misspellings.
type BleveDictionary struct {
	index   bleve.Index
	lexicon map[string]int
	logger  *zap.Logger
}

// DictionaryOption configures a BleveDictionary.
type DictionaryOption func(*BleveDictionary)

// WithLexicon adds words with their counts to the dictionary.
func WithLexicon(words map[string]int) DictionaryOption {
	return func(d *BleveDictionary) {
		for w, n := range words {
			d.lexicon[w] += n
		}
	}
}

// WithDictionaryLogger sets the logger.
func WithDictionaryLogger(l *zap.Logger) DictionaryOption {
	return func(d *BleveDictionary) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewBleveDictionary creates or opens a dictionary index at path. An empty path keeps the
// index in memory.
func NewBleveDictionary(path string, opts ...DictionaryOption) (*BleveDictionary, error) {
	d := &BleveDictionary{lexicon: make(map[string]int), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}

	var (
		index bleve.Index
		err   error
	)
	switch {
	case path == "":
		im, mapErr := newDictionaryMapping()
		if mapErr != nil {
			return nil, mapErr
		}
		index, err = bleve.NewMemOnly(im)
	default:
		if _, statErr := os.Stat(path); statErr == nil {
			index, err = bleve.Open(path)
			if err != nil {
				return nil, fmt.Errorf("failed to open dictionary index: %w", err)
			}
			break
		}
		im, mapErr := newDictionaryMapping()
		if mapErr != nil {
			return nil, mapErr
		}
		index, err = bleve.New(path, im)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create dictionary index: %w", err)
	}
	d.index = index
	return d, nil
}

// newDictionaryMapping indexes a single text field with a lowercase Unicode word analyzer.
// No stop word filter and no stemming, so every surface word lands in the term dictionary.
func newDictionaryMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(spellAnalyze, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register analyzer: %w", err)
	}
	docMapping := bleve.NewDocumentMapping()
	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = spellAnalyze
	textMapping.Store = false
	textMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt(textField, textMapping)
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = spellAnalyze
	return im, nil
}

// IndexDocument adds or replaces the text stored under id.
func (d *BleveDictionary) IndexDocument(id, text string) error {
	if err := d.index.Index(id, map[string]interface{}{textField: text}); err != nil {
		return fmt.Errorf("index %s: %w", id, err)
	}
	d.logger.Debug("dictionary document indexed", zap.String("id", id), zap.Int("bytes", len(text)))
	return nil
}

// DeleteDocument removes the text stored under id. Unknown ids are ignored.
func (d *BleveDictionary) DeleteDocument(id string) error {
	if err := d.index.Delete(id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	d.logger.Debug("dictionary document deleted", zap.String("id", id))
	return nil
}

// DocCount returns the number of indexed documents.
func (d *BleveDictionary) DocCount() (uint64, error) {
	return d.index.DocCount()
}

// Close closes the underlying index.
func (d *BleveDictionary) Close() error {
	return d.index.Close()
}

// TermFrequencies returns every known term with its frequency.
func (d *BleveDictionary) TermFrequencies() (map[string]int, error) {
	out := make(map[string]int, len(d.lexicon))
	for t, n := range d.lexicon {
		out[t] = n
	}

	dict, err := d.index.FieldDict(textField)
	if err != nil {
		return nil, fmt.Errorf("read term dictionary: %w", err)
	}
	defer dict.Close()
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("read term dictionary: %w", err)
		}
		if entry == nil {
			break
		}
		if entry.Count == 0 {
			continue
		}
		out[entry.Term] += int(entry.Count)
	}
	return out, nil
}

// GetAllTerms returns all unique terms.
func (d *BleveDictionary) GetAllTerms() ([]string, error) {
	freqs, err := d.TermFrequencies()
	if err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(freqs))
	for t := range freqs {
		terms = append(terms, t)
	}
	return terms, nil
}

// GetTermFrequency returns the frequency of a single term.
func (d *BleveDictionary) GetTermFrequency(term string) (int, error) {
	n := d.lexicon[term]

	dict, err := d.index.FieldDictRange(textField, []byte(term), []byte(term))
	if err != nil {
		return 0, fmt.Errorf("read term dictionary: %w", err)
	}
	defer dict.Close()
	entry, err := dict.Next()
	if err != nil {
		return 0, fmt.Errorf("read term dictionary: %w", err)
	}
	if entry != nil && entry.Term == term {
		n += int(entry.Count)
	}
	return n, nil
}

// ContainsTerm reports whether term is known.
func (d *BleveDictionary) ContainsTerm(term string) (bool, error) {
	n, err := d.GetTermFrequency(term)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
