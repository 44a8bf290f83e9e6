package replace

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// whitespaceRun matches everything strings.Fields treats as a separator.
const whitespaceRun = `[\s\v\x{85}\p{Z}]+`

var errEmptyPattern = errors.New("empty pattern")

// normalizeWhitespace collapses whitespace runs to single spaces and trims the ends.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// flexiblePattern compiles text into a regex that matches the same words
// separated by any non-empty whitespace run. Every word is quoted first.
func flexiblePattern(text string) (*regexp.Regexp, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, errEmptyPattern
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile(strings.Join(quoted, whitespaceRun))
}

// findFlexible returns the leftmost span in content matching text with flexible whitespace.
func findFlexible(content, text string) (Span, bool) {
	re, err := flexiblePattern(text)
	if err != nil {
		return Span{}, false
	}
	loc := re.FindStringIndex(content)
	if loc == nil {
		return Span{}, false
	}
	return Span{Start: loc[0], End: loc[1]}, true
}

// token is a whitespace-delimited word with its byte offsets in the source string.
type token struct {
	text  string
	lower string
	start int
	end   int
}

func tokenize(s string) []token {
	var toks []token
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, newToken(s, start, i))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, newToken(s, start, len(s)))
	}
	return toks
}

func newToken(s string, start, end int) token {
	text := s[start:end]
	return token{text: text, lower: strings.ToLower(text), start: start, end: end}
}

func isMeaningful(word string, minLen int) bool {
	return utf8.RuneCountInString(word) >= minLen
}

func countMeaningful(words []string, minLen int) int {
	n := 0
	for _, w := range words {
		if isMeaningful(w, minLen) {
			n++
		}
	}
	return n
}

// runePrefix returns at most n runes of s.
func runePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// splitSentences splits on '.', '!' and '?', keeping the terminator with its sentence.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			end := i + utf8.RuneLen(r)
			if sent := strings.TrimSpace(s[start:end]); sent != "" {
				out = append(out, sent)
			}
			start = end
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
