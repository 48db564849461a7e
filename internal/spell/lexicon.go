package spell

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed words.txt
var commonWords string

// DefaultLexicon returns the built-in list of common English words, each with frequency 1.
func DefaultLexicon() map[string]int {
	lex, _ := ParseLexicon(strings.NewReader(commonWords))
	return lex
}

// LoadLexicon reads a word list file. See ParseLexicon for the format.
func LoadLexicon(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	return ParseLexicon(f)
}

// ParseLexicon reads one word per line, optionally followed by whitespace and a count.
// Blank lines and lines starting with '#' are ignored. Words are lowercased and
// repeated words accumulate their counts.
func ParseLexicon(r io.Reader) (map[string]int, error) {
	lex := make(map[string]int)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		count := 1
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("lexicon line %d: invalid count %q", line, fields[1])
			}
			count = n
		}
		lex[strings.ToLower(fields[0])] += count
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return lex, nil
}
