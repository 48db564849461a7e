// Package spell provides dictionary-based spelling correction.
package spell

import (
	"strings"
	"sync"
)

// TermDictionary provides access to the known words for spell checking.
// This interface allows dependency injection for testing.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the dictionary.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns how common a term is.
	GetTermFrequency(term string) (int, error)
	// ContainsTerm checks if a term exists in the dictionary.
	ContainsTerm(term string) (bool, error)
}

// FrequencySource is implemented by dictionaries that can report every term with its
// frequency in one pass. SpellChecker uses it instead of per-term lookups when available.
type FrequencySource interface {
	TermFrequencies() (map[string]int, error)
}

// MapDictionary is an in-memory TermDictionary. Terms are stored lowercased.
type MapDictionary struct {
	mu    sync.RWMutex
	terms map[string]int
}

// NewMapDictionary returns a dictionary holding terms with their frequencies.
func NewMapDictionary(terms map[string]int) *MapDictionary {
	d := &MapDictionary{terms: make(map[string]int, len(terms))}
	for t, f := range terms {
		d.terms[strings.ToLower(t)] += f
	}
	return d
}

// Add increases the frequency of term by n.
func (d *MapDictionary) Add(term string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.terms[strings.ToLower(term)] += n
}

// GetAllTerms returns all terms.
func (d *MapDictionary) GetAllTerms() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.terms))
	for t := range d.terms {
		out = append(out, t)
	}
	return out, nil
}

// GetTermFrequency returns the frequency of term, or 0 when unknown.
func (d *MapDictionary) GetTermFrequency(term string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.terms[strings.ToLower(term)], nil
}

// ContainsTerm reports whether term is known.
func (d *MapDictionary) ContainsTerm(term string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.terms[strings.ToLower(term)]
	return ok, nil
}

// TermFrequencies returns a copy of every term with its frequency.
func (d *MapDictionary) TermFrequencies() (map[string]int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int, len(d.terms))
	for t, f := range d.terms {
		out[t] = f
	}
	return out, nil
}
