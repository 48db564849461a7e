package inference

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Special tokens every BERT-style vocabulary carries.
const (
	tokenCLS = "[CLS]"
	tokenSEP = "[SEP]"
	tokenUNK = "[UNK]"
	tokenPAD = "[PAD]"
)

const maxWordRunes = 100

// Token is a WordPiece token with the byte span of the original text it came from.
type Token struct {
	ID    int64
	Start int
	End   int
}

// WordPiece tokenizes text with a BERT vocabulary, keeping offsets into the input so an
// answer span can be cut from the original text.
type WordPiece struct {
	vocab     map[string]int64
	lowercase bool
	clsID     int64
	sepID     int64
	unkID     int64
	padID     int64
}

// LoadVocab reads a vocab.txt file (one token per line, id = line number).
func LoadVocab(path string) (map[string]int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocab: %w", err)
	}
	defer f.Close()
	return ParseVocab(f)
}

// ParseVocab reads a vocabulary with one token per line.
func ParseVocab(r io.Reader) (map[string]int64, error) {
	vocab := make(map[string]int64)
	sc := bufio.NewScanner(r)
	var id int64
	for sc.Scan() {
		tok := strings.TrimRight(sc.Text(), "\r")
		if _, dup := vocab[tok]; !dup {
			vocab[tok] = id
		}
		id++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read vocab: %w", err)
	}
	return vocab, nil
}

// NewWordPiece returns a tokenizer over vocab. lowercase must match how the model was trained.
func NewWordPiece(vocab map[string]int64, lowercase bool) (*WordPiece, error) {
	w := &WordPiece{vocab: vocab, lowercase: lowercase}
	for _, sp := range []struct {
		name string
		dst  *int64
	}{
		{tokenCLS, &w.clsID},
		{tokenSEP, &w.sepID},
		{tokenUNK, &w.unkID},
		{tokenPAD, &w.padID},
	} {
		id, ok := vocab[sp.name]
		if !ok {
			return nil, fmt.Errorf("vocab is missing %s", sp.name)
		}
		*sp.dst = id
	}
	return w, nil
}

// Tokenize splits text into WordPiece tokens.
func (w *WordPiece) Tokenize(text string) []Token {
	var out []Token
	for _, word := range basicSplit(text) {
		out = append(out, w.wordPieces(text[word.start:word.end], word.start)...)
	}
	return out
}

type span struct{ start, end int }

// basicSplit splits on whitespace and isolates punctuation and symbols as single-rune words.
func basicSplit(text string) []span {
	var (
		out   []span
		start = -1
	)
	flush := func(end int) {
		if start >= 0 {
			out = append(out, span{start, end})
			start = -1
		}
	}
	for i, r := range text {
		switch {
		case unicode.IsSpace(r) || r == 0 || r == utf8.RuneError || unicode.IsControl(r):
			flush(i)
		case isPunct(r):
			flush(i)
			out = append(out, span{i, i + utf8.RuneLen(r)})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))
	return out
}

func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// wordPieces runs greedy longest-match-first over one word. offset is the word's byte
// position in the original text.
func (w *WordPiece) wordPieces(word string, offset int) []Token {
	if utf8.RuneCountInString(word) > maxWordRunes {
		return []Token{{ID: w.unkID, Start: offset, End: offset + len(word)}}
	}
	// norm is the lookup form; origAt maps each byte boundary of norm back into word.
	norm, origAt := w.normalize(word)

	var pieces []Token
	start := 0
	for start < len(norm) {
		end := len(norm)
		found := int64(-1)
		for end > start {
			sub := norm[start:end]
			if start > 0 {
				sub = "##" + sub
			}
			if id, ok := w.vocab[sub]; ok {
				found = id
				break
			}
			_, size := utf8.DecodeLastRuneInString(norm[start:end])
			end -= size
		}
		if found < 0 {
			return []Token{{ID: w.unkID, Start: offset, End: offset + len(word)}}
		}
		pieces = append(pieces, Token{ID: found, Start: offset + origAt[start], End: offset + origAt[end]})
		start = end
	}
	return pieces
}

func (w *WordPiece) normalize(word string) (string, []int) {
	if !w.lowercase {
		origAt := make([]int, len(word)+1)
		for i := range origAt {
			origAt[i] = i
		}
		return word, origAt
	}
	var b strings.Builder
	origAt := make([]int, 0, len(word)+1)
	for i, r := range word {
		lr := unicode.ToLower(r)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			origAt = append(origAt, i)
		}
		b.WriteRune(lr)
	}
	origAt = append(origAt, len(word))
	return b.String(), origAt
}
