// Package replace splices edited text back into section content when the
// text that was sent for editing may no longer match the content verbatim.
package replace

import (
	"fmt"
	"strings"
	"unicode/utf8"

	apperrors "regdraft/internal/errors"
)

// Span is a half-open byte range [Start, End) in the unnormalized content.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) validIn(content string) bool {
	return s.Start >= 0 && s.End > s.Start && s.End <= len(content)
}

// Strategy locates original inside content. Find must be pure.
type Strategy struct {
	Name string
	Find func(content, original string) (Span, bool)
}

// Result is the outcome of a successful replacement.
type Result struct {
	Content  string
	Span     Span
	Strategy string
	Matched  string
}

// Options holds the tunable thresholds used by the built-in strategies.
type Options struct {
	// PrefixLength is the number of runes of the original used as an anchor.
	PrefixLength int
	// ContextWindow is how much normalized content past the anchor hit is searched for the tail phrase.
	ContextWindow int
	// AnchorPhraseWords is the size of the head and tail phrases used to bound an anchored match.
	AnchorPhraseWords int
	// AnchorLengthSlack bounds how far an anchored match may drift from the original's length (0.5 = ±50%).
	AnchorLengthSlack float64
	// TokenWindowTrigger is the minimum rune length of the original before token alignment runs.
	TokenWindowTrigger int
	// TokenMatchRatio is the fraction of meaningful words that must align.
	TokenMatchRatio float64
	// RunBonus is added per extra word in a consecutive run of matches.
	RunBonus float64
	// SentenceMinLength is the minimum normalized length of an anchor sentence.
	SentenceMinLength int
	// MinWordLength is the shortest token that counts as a meaningful word.
	MinWordLength int
}

// DefaultOptions returns the empirically chosen thresholds.
func DefaultOptions() Options {
	return Options{
		PrefixLength:       50,
		ContextWindow:      300,
		AnchorPhraseWords:  3,
		AnchorLengthSlack:  0.5,
		TokenWindowTrigger: 100,
		TokenMatchRatio:    0.70,
		RunBonus:           0.5,
		SentenceMinLength:  15,
		MinWordLength:      3,
	}
}

// Engine tries its strategies strictly in order; the first success wins.
type Engine struct {
	opts       Options
	strategies []Strategy
}

// NewEngine builds an engine with the default strategy cascade.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts: opts,
		strategies: []Strategy{
			ExactStrategy(),
			WhitespaceStrategy(),
			PrefixAnchorStrategy(opts),
			TokenWindowStrategy(opts),
			SentenceAnchorStrategy(opts),
		},
	}
}

// NewEngineWithStrategies builds an engine with a custom cascade.
func NewEngineWithStrategies(opts Options, strategies ...Strategy) *Engine {
	return &Engine{opts: opts, strategies: strategies}
}

// Strategies returns the names of the configured strategies in order.
func (e *Engine) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Locate returns the span of original in content and the strategy that found it.
func (e *Engine) Locate(content, original string) (Span, string, bool) {
	if strings.TrimSpace(original) == "" || content == "" {
		return Span{}, "", false
	}
	for _, s := range e.strategies {
		span, ok := attempt(s, content, original)
		if ok && span.validIn(content) {
			return span, s.Name, true
		}
	}
	return Span{}, "", false
}

// Replace substitutes replacement for the located original. When no strategy
// finds original, the returned Result carries content unchanged and the
// error is a *errors.NoMatchError.
func (e *Engine) Replace(content, original, replacement string) (Result, error) {
	span, name, ok := e.Locate(content, original)
	if !ok {
		return Result{Content: content}, e.noMatch(content, original)
	}

	var b strings.Builder
	b.Grow(len(content) - span.Len() + len(replacement))
	b.WriteString(content[:span.Start])
	b.WriteString(replacement)
	b.WriteString(content[span.End:])

	return Result{
		Content:  b.String(),
		Span:     span,
		Strategy: name,
		Matched:  content[span.Start:span.End],
	}, nil
}

func (e *Engine) noMatch(content, original string) *apperrors.NoMatchError {
	closest, sim := closestRegion(content, original)
	return &apperrors.NoMatchError{
		Original:   original,
		Preview:    preview(original, 100),
		Closest:    closest,
		Similarity: sim,
		Attempted:  e.Strategies(),
	}
}

// attempt runs one strategy; a panic counts as that strategy failing.
func attempt(s Strategy, content, original string) (span Span, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			span, ok = Span{}, false
		}
	}()
	return s.Find(content, original)
}

func preview(s string, n int) string {
	s = normalizeWhitespace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string([]rune(s)[:n]))
}
