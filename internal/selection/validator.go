package selection

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Thresholds tune how leniently a selection is matched against content.
// The defaults were chosen empirically against representative sections.
type Thresholds struct {
	// MinSelection is the shortest selection (runes) considered for anything but exact containment.
	MinSelection int
	// NormalizeAbove enables whitespace-normalized and word-ratio checks for longer selections.
	NormalizeAbove int
	// MinWords is the number of meaningful words a selection must exceed for the word-ratio check.
	MinWords int
	// WordRatio is the fraction of meaningful words that must be present in the content.
	WordRatio float64
	// LargeSelection is the length (runes) at which a selection is accepted without strict validation.
	LargeSelection int
	// MinWordLength is the shortest token that counts as a meaningful word.
	MinWordLength int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSelection:   10,
		NormalizeAbove: 50,
		MinWords:       5,
		WordRatio:      0.30,
		LargeSelection: 400,
		MinWordLength:  3,
	}
}

// Validator decides whether a captured selection plausibly comes from some content.
type Validator struct {
	th Thresholds
}

func NewValidator(th Thresholds) *Validator {
	return &Validator{th: th}
}

// IsSelectionValid prefers false positives on large selections: rejecting a
// real selection is worse than accepting a drifted one, because the
// replacement engine has its own fallback cascade.
func (v *Validator) IsSelectionValid(selection, content string) bool {
	sel := norm.NFC.String(selection)
	text := norm.NFC.String(content)
	if strings.TrimSpace(sel) == "" || text == "" {
		return false
	}
	if strings.Contains(text, sel) {
		return true
	}

	n := utf8.RuneCountInString(sel)
	if n < v.th.MinSelection {
		return false
	}
	if n >= v.th.LargeSelection {
		return true
	}
	if n <= v.th.NormalizeAbove {
		return false
	}

	normSel := collapse(sel)
	normText := collapse(text)
	if strings.Contains(normText, normSel) {
		return true
	}

	words := v.meaningfulWords(normSel)
	if len(words) <= v.th.MinWords {
		return false
	}
	return v.presentRatio(words, normText) > v.th.WordRatio
}

func (v *Validator) meaningfulWords(s string) []string {
	var out []string
	for _, f := range strings.Fields(s) {
		w := cleanWord(f)
		if utf8.RuneCountInString(w) >= v.th.MinWordLength {
			out = append(out, w)
		}
	}
	return out
}

func (v *Validator) presentRatio(words []string, text string) float64 {
	vocab := make(map[string]struct{})
	for _, f := range strings.Fields(text) {
		vocab[cleanWord(f)] = struct{}{}
	}
	present := 0
	for _, w := range words {
		if _, ok := vocab[w]; ok {
			present++
		}
	}
	return float64(present) / float64(len(words))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanWord lowercases and strips surrounding punctuation so that "lots." and "lots" compare equal.
func cleanWord(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}))
}
