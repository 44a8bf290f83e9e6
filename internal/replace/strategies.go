package replace

import (
	"strings"
	"unicode/utf8"
)

const (
	StrategyExact          = "exact"
	StrategyWhitespace     = "whitespace"
	StrategyPrefixAnchor   = "prefix-anchor"
	StrategyTokenWindow    = "token-window"
	StrategySentenceAnchor = "sentence-anchor"
)

// ExactStrategy matches the first verbatim occurrence.
func ExactStrategy() Strategy {
	return Strategy{
		Name: StrategyExact,
		Find: func(content, original string) (Span, bool) {
			idx := strings.Index(content, original)
			if idx < 0 {
				return Span{}, false
			}
			return Span{Start: idx, End: idx + len(original)}, true
		},
	}
}

// WhitespaceStrategy matches when both sides agree after collapsing whitespace.
// The span covers the unnormalized region, so line breaks outside it survive.
func WhitespaceStrategy() Strategy {
	return Strategy{
		Name: StrategyWhitespace,
		Find: func(content, original string) (Span, bool) {
			normOrig := normalizeWhitespace(original)
			if normOrig == "" {
				return Span{}, false
			}
			if !strings.Contains(normalizeWhitespace(content), normOrig) {
				return Span{}, false
			}
			return findFlexible(content, normOrig)
		},
	}
}

// PrefixAnchorStrategy anchors on the first PrefixLength runes of the original,
// then bounds the match inside a window of content by the original's head and
// tail phrases. It recovers selections that were truncated or picked up extra
// markup in the middle.
func PrefixAnchorStrategy(opts Options) Strategy {
	return Strategy{
		Name: StrategyPrefixAnchor,
		Find: func(content, original string) (Span, bool) {
			normOrig := normalizeWhitespace(original)
			words := strings.Fields(normOrig)
			k := opts.AnchorPhraseWords
			if k <= 0 || len(words) < k || countMeaningful(words, opts.MinWordLength) < k {
				return Span{}, false
			}

			prefix := normalizeWhitespace(runePrefix(original, opts.PrefixLength))
			if prefix == "" {
				return Span{}, false
			}
			normContent := normalizeWhitespace(content)
			hit := strings.Index(normContent, prefix)
			if hit < 0 {
				return Span{}, false
			}

			end := hit + len(normOrig) + opts.ContextWindow
			if end > len(normContent) {
				end = len(normContent)
			}
			for end < len(normContent) && !utf8.RuneStart(normContent[end]) {
				end++
			}
			window := normContent[hit:end]

			head := strings.Join(words[:k], " ")
			tail := strings.Join(words[len(words)-k:], " ")
			headPos := strings.Index(window, head)
			if headPos < 0 {
				return Span{}, false
			}
			tailEnd, ok := findTailEnd(window, tail, headPos, headPos+len(head))
			if !ok {
				return Span{}, false
			}

			bounded := window[headPos:tailEnd]
			lo := float64(len(normOrig)) * (1 - opts.AnchorLengthSlack)
			hi := float64(len(normOrig)) * (1 + opts.AnchorLengthSlack)
			if n := float64(len(bounded)); n < lo || n > hi {
				return Span{}, false
			}
			return findFlexible(content, bounded)
		},
	}
}

// findTailEnd returns the end offset of the first occurrence of tail at or
// after from whose end is not before minEnd. A tail ending inside a word is
// extended to the end of that word.
func findTailEnd(window, tail string, from, minEnd int) (int, bool) {
	for from <= len(window) {
		i := strings.Index(window[from:], tail)
		if i < 0 {
			return 0, false
		}
		pos := from + i
		if end := pos + len(tail); end >= minEnd {
			if j := strings.IndexByte(window[end:], ' '); j >= 0 {
				return end + j, true
			}
			return len(window), true
		}
		from = pos + 1
	}
	return 0, false
}

// TokenWindowStrategy slides a window of the original's word count across the
// content words and keeps the best scoring position. Only meaningful words
// count toward the score; consecutive matches earn RunBonus each. Ties keep
// the leftmost window.
func TokenWindowStrategy(opts Options) Strategy {
	return Strategy{
		Name: StrategyTokenWindow,
		Find: func(content, original string) (Span, bool) {
			if utf8.RuneCountInString(original) <= opts.TokenWindowTrigger {
				return Span{}, false
			}
			words := strings.Fields(original)
			n := len(words)
			meaningful := make([]bool, n)
			total := 0
			for i, w := range words {
				words[i] = strings.ToLower(w)
				if isMeaningful(w, opts.MinWordLength) {
					meaningful[i] = true
					total++
				}
			}
			if total == 0 {
				return Span{}, false
			}

			toks := tokenize(content)
			if n > len(toks) {
				return Span{}, false
			}

			bestPos, bestMatches := -1, 0
			bestScore := -1.0
			for i := 0; i+n <= len(toks); i++ {
				matches, run := 0, 0
				score := 0.0
				for j := 0; j < n; j++ {
					if !meaningful[j] {
						continue
					}
					if toks[i+j].lower == words[j] {
						matches++
						if run > 0 {
							score += opts.RunBonus
						}
						run++
					} else {
						run = 0
					}
				}
				score += float64(matches)
				if score > bestScore {
					bestScore, bestPos, bestMatches = score, i, matches
				}
			}

			if bestPos < 0 || float64(bestMatches)/float64(total) <= opts.TokenMatchRatio {
				return Span{}, false
			}
			return Span{Start: toks[bestPos].start, End: toks[bestPos+n-1].end}, true
		},
	}
}

// SentenceAnchorStrategy looks for any sufficiently long sentence of the
// original in content, preferring the sentence joined with its successor.
func SentenceAnchorStrategy(opts Options) Strategy {
	return Strategy{
		Name: StrategySentenceAnchor,
		Find: func(content, original string) (Span, bool) {
			sentences := splitSentences(original)
			for i, s := range sentences {
				if len(normalizeWhitespace(s)) <= opts.SentenceMinLength {
					continue
				}
				if i+1 < len(sentences) {
					if span, ok := findFlexible(content, s+" "+sentences[i+1]); ok {
						return span, true
					}
				}
				if span, ok := findFlexible(content, s); ok {
					return span, true
				}
			}
			return Span{}, false
		},
	}
}
