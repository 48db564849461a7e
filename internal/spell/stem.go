package spell

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
)

var englishStemmer = en.NewEnglishStemmerFilter()

// stem returns the snowball English stem of a lowercase word, so "lists", "listed" and
// "listing" all map to "list".
func stem(word string) string {
	ts := englishStemmer.Filter(analysis.TokenStream{&analysis.Token{Term: []byte(word)}})
	return string(ts[0].Term)
}
