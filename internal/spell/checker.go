package spell

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/tanya/internal/cache"
	"go.uber.org/zap"
)

// DefaultFullDistanceTerms is the dictionary size from which two-edit corrections apply.
const DefaultFullDistanceTerms = 20000

// Suggestion is a candidate replacement for a misspelled term.
type Suggestion struct {
	Term      string // The suggested term
	Distance  int    // Edit distance from the original term
	Frequency int    // Dictionary frequency (popularity)
}

// SpellChecker corrects words against a TermDictionary.
// It is safe for concurrent use.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int
	minWordLength  int
	fullDistance   int
	logger         *zap.Logger

	mu     sync.RWMutex
	loaded bool
	freqs  map[string]int
	stems  map[string]struct{}
	// byLen groups terms by rune count so Suggest only scans lengths within maxDistance.
	byLen map[int][]string

	memo *cache.LRU[string, string]
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency sets the minimum frequency for a term to be suggested.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions returned per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithMinWordLength sets how many letters a word needs before it is corrected.
func WithMinWordLength(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.minWordLength = n
		}
	}
}

// WithFullDistanceTerms sets how many terms the dictionary needs before corrections
// at the full max distance are applied. Smaller dictionaries only correct single edits.
// Zero always uses the full distance.
func WithFullDistanceTerms(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n >= 0 {
			s.fullDistance = n
		}
	}
}

// WithCacheSize sets how many word corrections are memoized. Zero disables the memo.
func WithCacheSize(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n >= 0 {
			s.memo = cache.NewLRU[string, string](n)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) SpellCheckerOption {
	return func(s *SpellChecker) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSpellChecker creates a new SpellChecker with the given dictionary.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		minWordLength:  3,
		fullDistance:   DefaultFullDistanceTerms,
		logger:         zap.NewNop(),
		memo:           cache.NewLRU[string, string](10000),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshCache reloads terms from the dictionary and drops memoized corrections.
// Call it after the dictionary changes.
func (s *SpellChecker) RefreshCache() error {
	freqs, err := s.loadFrequencies()
	if err != nil {
		return err
	}
	byLen := make(map[int][]string)
	stems := make(map[string]struct{}, len(freqs))
	for t := range freqs {
		n := utf8.RuneCountInString(t)
		byLen[n] = append(byLen[n], t)
		stems[stem(t)] = struct{}{}
	}

	s.mu.Lock()
	s.freqs = freqs
	s.byLen = byLen
	s.stems = stems
	s.loaded = true
	s.mu.Unlock()
	s.memo.Purge()

	s.logger.Debug("spell dictionary loaded", zap.Int("terms", len(freqs)))
	return nil
}

func (s *SpellChecker) loadFrequencies() (map[string]int, error) {
	if src, ok := s.dictionary.(FrequencySource); ok {
		raw, err := src.TermFrequencies()
		if err != nil {
			return nil, err
		}
		freqs := make(map[string]int, len(raw))
		for t, f := range raw {
			if f > 0 {
				freqs[strings.ToLower(t)] += f
			}
		}
		return freqs, nil
	}
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return nil, err
	}
	freqs := make(map[string]int, len(terms))
	for _, t := range terms {
		f, err := s.dictionary.GetTermFrequency(t)
		if err != nil {
			return nil, err
		}
		if f > 0 {
			freqs[strings.ToLower(t)] += f
		}
	}
	return freqs, nil
}

func (s *SpellChecker) ensureLoaded() bool {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return true
	}
	if err := s.RefreshCache(); err != nil {
		s.logger.Warn("spell dictionary unavailable", zap.Error(err))
		return false
	}
	return true
}

// Known reports whether word (case-insensitive) is in the dictionary, either as is or
// as an inflection of a dictionary word with the same English stem.
func (s *SpellChecker) Known(word string) bool {
	if !s.ensureLoaded() {
		return false
	}
	lower := strings.ToLower(word)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.freqs[lower]; ok {
		return true
	}
	_, ok := s.stems[stem(lower)]
	return ok
}

// confidentDistance is the largest edit distance Correct accepts for the loaded dictionary.
func (s *SpellChecker) confidentDistance() int {
	s.mu.RLock()
	n := len(s.freqs)
	s.mu.RUnlock()
	if s.maxDistance > 1 && n < s.fullDistance {
		return 1
	}
	return s.maxDistance
}

// Suggest returns spelling suggestions for a single term, best first:
// smallest edit distance, then highest frequency, then alphabetical.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if !s.ensureLoaded() {
		return nil
	}
	termLower := strings.ToLower(term)
	n := utf8.RuneCountInString(termLower)

	s.mu.RLock()
	var suggestions []Suggestion
	for l := n - s.maxDistance; l <= n+s.maxDistance; l++ {
		for _, dictTerm := range s.byLen[l] {
			if dictTerm == termLower {
				continue
			}
			freq := s.freqs[dictTerm]
			if freq < s.minFreq {
				continue
			}
			if d := DamerauLevenshtein(termLower, dictTerm); d <= s.maxDistance {
				suggestions = append(suggestions, Suggestion{Term: dictTerm, Distance: d, Frequency: freq})
			}
		}
	}
	s.mu.RUnlock()

	sort.Slice(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		return a.Term < b.Term
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// Correct returns the best correction for a single whitespace-free token.
// Leading and trailing punctuation is kept and the capitalization of the word is carried
// over. The token is returned unchanged when it is known, contains anything but letters,
// is shorter than the minimum word length, or has no candidate within the confident
// distance. The result is never empty.
func (s *SpellChecker) Correct(token string) string {
	lead, word, trail := splitToken(token)
	if !s.correctable(word) {
		return token
	}
	if v, ok := s.memo.Get(word); ok {
		return lead + v + trail
	}
	corrected := word
	if !s.Known(word) {
		if sugg := s.Suggest(word); len(sugg) > 0 && sugg[0].Distance <= s.confidentDistance() {
			corrected = matchCase(word, sugg[0].Term)
		}
	}
	s.memo.Set(word, corrected)
	return lead + corrected + trail
}

// CorrectText splits text on whitespace, corrects every token, and joins the result
// with single spaces.
func (s *SpellChecker) CorrectText(text string) string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = s.Correct(f)
	}
	return strings.Join(fields, " ")
}

func (s *SpellChecker) correctable(word string) bool {
	letters := 0
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
		letters++
	}
	return letters >= s.minWordLength
}

// splitToken separates leading and trailing non-alphanumeric runes from the word core.
func splitToken(token string) (lead, word, trail string) {
	isWordRune := func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	start := strings.IndexFunc(token, isWordRune)
	if start < 0 {
		return token, "", ""
	}
	end := strings.LastIndexFunc(token, isWordRune)
	_, size := utf8.DecodeRuneInString(token[end:])
	end += size
	return token[:start], token[start:end], token[end:]
}

// matchCase applies the capitalization pattern of original to replacement.
func matchCase(original, replacement string) string {
	if replacement == "" {
		return original
	}
	upper, firstUpper := true, false
	for i, r := range original {
		if unicode.IsLower(r) {
			upper = false
		}
		if i == 0 {
			firstUpper = unicode.IsUpper(r)
		}
	}
	switch {
	case upper && utf8.RuneCountInString(original) > 1:
		return strings.ToUpper(replacement)
	case firstUpper:
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	default:
		return replacement
	}
}
