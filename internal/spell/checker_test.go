package spell

import (
	"errors"
	"reflect"
	"testing"
)

// mockTermDictionary is a mock implementation of TermDictionary for testing.
// It deliberately does not implement FrequencySource.
type mockTermDictionary struct {
	terms        map[string]int // term -> frequency
	getAllError  error
	getAllCalls  int
	getFreqError error
}

func newMockTermDictionary(terms map[string]int) *mockTermDictionary {
	return &mockTermDictionary{terms: terms}
}

func (m *mockTermDictionary) GetAllTerms() ([]string, error) {
	m.getAllCalls++
	if m.getAllError != nil {
		return nil, m.getAllError
	}
	result := make([]string, 0, len(m.terms))
	for term := range m.terms {
		result = append(result, term)
	}
	return result, nil
}

func (m *mockTermDictionary) GetTermFrequency(term string) (int, error) {
	if m.getFreqError != nil {
		return 0, m.getFreqError
	}
	return m.terms[term], nil
}

func (m *mockTermDictionary) ContainsTerm(term string) (bool, error) {
	_, ok := m.terms[term]
	return ok, nil
}

var courseTerms = map[string]int{
	"graph":     5,
	"graphs":    3,
	"vertex":    4,
	"vertices":  2,
	"the":       100,
	"algorithm": 7,
	"edges":     3,
	"what":      10,
	"is":        50,
}

func TestSpellChecker_defaults(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(nil))
	if sc.maxDistance != 2 {
		t.Errorf("default maxDistance = %d, want 2", sc.maxDistance)
	}
	if sc.minFreq != 1 {
		t.Errorf("default minFreq = %d, want 1", sc.minFreq)
	}
	if sc.maxSuggestions != 5 {
		t.Errorf("default maxSuggestions = %d, want 5", sc.maxSuggestions)
	}
	if sc.minWordLength != 3 {
		t.Errorf("default minWordLength = %d, want 3", sc.minWordLength)
	}
	if sc.fullDistance != DefaultFullDistanceTerms {
		t.Errorf("default fullDistance = %d, want %d", sc.fullDistance, DefaultFullDistanceTerms)
	}
}

func TestSpellChecker_Correct(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(courseTerms))
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"known word", "graph", "graph"},
		{"known word mixed case", "Graph", "Graph"},
		{"single edit", "grapj", "graph"},
		{"transposition", "teh", "the"},
		{"capitalized", "Grapj", "Graph"},
		{"all caps", "GRAPJ", "GRAPH"},
		{"trailing punctuation", "grapj,", "graph,"},
		{"wrapped in parens", "(algoritm)", "(algorithm)"},
		{"short word kept", "iz", "iz"},
		{"digits kept", "x2y", "x2y"},
		{"number kept", "2024", "2024"},
		{"punctuation only", "...", "..."},
		{"no candidate", "zzzzzzz", "zzzzzzz"},
		{"apostrophe kept", "grap'h", "grap'h"},
		{"hyphenated kept", "graph-like", "graph-like"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sc.Correct(tt.token); got != tt.want {
				t.Errorf("Correct(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestSpellChecker_CorrectText(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(courseTerms))
	got := sc.CorrectText("  what  is a grapj?\n\tverteces ")
	want := "what is a graph? vertices"
	if got != want {
		t.Errorf("CorrectText = %q, want %q", got, want)
	}
	if got := sc.CorrectText(""); got != "" {
		t.Errorf("CorrectText(\"\") = %q", got)
	}
}

func TestSpellChecker_Correct_keepsInflections(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(map[string]int{
		"system": 3, "list": 2, "link": 1, "condition": 1, "phase": 1, "lust": 4,
	}))
	for _, word := range []string{"systems", "lists", "linked", "conditions", "phases", "Lists"} {
		if got := sc.Correct(word); got != word {
			t.Errorf("Correct(%q) = %q, want it unchanged", word, got)
		}
	}
	if !sc.Known("linking") {
		t.Error("an inflection of a dictionary word should be known")
	}
}

func TestSpellChecker_Correct_smallDictionaryOnlySingleEdits(t *testing.T) {
	dict := newMockTermDictionary(map[string]int{"pass": 5, "graph": 3})

	sc := NewSpellChecker(dict)
	if got := sc.Correct("phases"); got != "phases" {
		t.Errorf("two-edit match in a small dictionary: got %q, want phases", got)
	}
	if got := sc.Correct("grapj"); got != "graph" {
		t.Errorf("single edit: got %q, want graph", got)
	}
	if s := sc.Suggest("phases"); len(s) == 0 || s[0].Term != "pass" || s[0].Distance != 2 {
		t.Errorf("Suggest should still list two-edit candidates, got %+v", s)
	}

	for _, n := range []int{0, 2} {
		sc = NewSpellChecker(dict, WithFullDistanceTerms(n))
		if got := sc.Correct("phases"); got != "pass" {
			t.Errorf("WithFullDistanceTerms(%d): got %q, want pass", n, got)
		}
	}

	sc = NewSpellChecker(dict, WithMaxDistance(1), WithFullDistanceTerms(0))
	if got := sc.Correct("phases"); got != "phases" {
		t.Errorf("max distance 1: got %q, want phases", got)
	}
}

func TestSpellChecker_Suggest_ordering(t *testing.T) {
	sc := NewSpellChecker(newMockTermDictionary(map[string]int{"cat": 5, "bat": 5, "hat": 9, "cart": 20, "cst": 1}))
	got := sc.Suggest("cst")
	var terms []string
	for _, s := range got {
		terms = append(terms, s.Term)
	}
	want := []string{"cat", "cart", "hat", "bat"}
	if !reflect.DeepEqual(terms, want) {
		t.Errorf("Suggest order = %v, want %v", terms, want)
	}
	if got[0].Distance != 1 || got[1].Distance != 2 {
		t.Errorf("distances = %d, %d", got[0].Distance, got[1].Distance)
	}
}

func TestSpellChecker_Suggest_options(t *testing.T) {
	dict := newMockTermDictionary(map[string]int{"cat": 5, "bat": 5, "hat": 9, "cart": 20})

	sc := NewSpellChecker(dict, WithMinFrequency(6))
	for _, s := range sc.Suggest("cst") {
		if s.Frequency < 6 {
			t.Errorf("suggestion %q below min frequency", s.Term)
		}
	}

	sc = NewSpellChecker(dict, WithMaxSuggestions(2))
	if n := len(sc.Suggest("cst")); n != 2 {
		t.Errorf("max suggestions: got %d, want 2", n)
	}

	sc = NewSpellChecker(dict, WithMaxDistance(1))
	for _, s := range sc.Suggest("cst") {
		if s.Distance > 1 {
			t.Errorf("suggestion %q exceeds max distance", s.Term)
		}
	}
}

func TestSpellChecker_RefreshCache(t *testing.T) {
	dict := newMockTermDictionary(map[string]int{"graph": 5})
	sc := NewSpellChecker(dict)

	if got := sc.Correct("grapx"); got != "graph" {
		t.Fatalf("Correct = %q, want graph", got)
	}
	if dict.getAllCalls != 1 {
		t.Errorf("dictionary loaded %d times, want 1", dict.getAllCalls)
	}

	dict.terms["grapx"] = 1
	if got := sc.Correct("grapx"); got != "graph" {
		t.Errorf("before refresh the memoized correction should be used, got %q", got)
	}
	if err := sc.RefreshCache(); err != nil {
		t.Fatal(err)
	}
	if got := sc.Correct("grapx"); got != "grapx" {
		t.Errorf("after refresh a newly known word should be kept, got %q", got)
	}
}

func TestSpellChecker_dictionaryError(t *testing.T) {
	dict := newMockTermDictionary(courseTerms)
	dict.getAllError = errors.New("index closed")
	sc := NewSpellChecker(dict)

	if got := sc.Correct("grapj"); got != "grapj" {
		t.Errorf("Correct with failing dictionary = %q, want original", got)
	}
	if got := sc.Suggest("grapj"); got != nil {
		t.Errorf("Suggest with failing dictionary = %v, want nil", got)
	}
	if err := sc.RefreshCache(); err == nil {
		t.Error("RefreshCache should surface the dictionary error")
	}
}

func TestSpellChecker_frequencySource(t *testing.T) {
	dict := NewMapDictionary(map[string]int{"Lecture": 2, "lecture": 1, "notes": 4})
	sc := NewSpellChecker(dict, WithCacheSize(0))
	if !sc.Known("LECTURE") {
		t.Error("lookups should be case-insensitive")
	}
	if got := sc.Correct("lectrue"); got != "lecture" {
		t.Errorf("Correct = %q, want lecture", got)
	}
	s := sc.Suggest("lectur")
	if len(s) == 0 || s[0].Frequency != 3 {
		t.Errorf("merged frequency: got %+v", s)
	}
}

func TestSplitToken(t *testing.T) {
	tests := []struct {
		token, lead, word, trail string
	}{
		{"word", "", "word", ""},
		{"\"quoted.\"", "\"", "quoted", ".\""},
		{"...", "...", "", ""},
		{"¿qué?", "¿", "qué", "?"},
	}
	for _, tt := range tests {
		lead, word, trail := splitToken(tt.token)
		if lead != tt.lead || word != tt.word || trail != tt.trail {
			t.Errorf("splitToken(%q) = %q,%q,%q want %q,%q,%q", tt.token, lead, word, trail, tt.lead, tt.word, tt.trail)
		}
	}
}
