package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one!  Third?trailing words")
	assert.Equal(t, []string{"First one.", "Second one!", "Third?", "trailing words"}, got)
}

func TestRunePrefix_IsRuneSafe(t *testing.T) {
	assert.Equal(t, "Tempé", runePrefix("Température", 5))
	assert.Equal(t, "Temp", runePrefix("Température", 4))
	assert.Equal(t, "abc", runePrefix("abc", 10))
	assert.Equal(t, "", runePrefix("abc", 0))
}

func TestTokenize_KeepsOffsets(t *testing.T) {
	src := "  alpha\tbeta\n\ngamma "
	toks := tokenize(src)
	require.Len(t, toks, 3)
	for _, tok := range toks {
		assert.Equal(t, tok.text, src[tok.start:tok.end])
	}
	assert.Equal(t, "gamma", toks[2].text)
}

func TestFindFlexible_QuotesInput(t *testing.T) {
	span, ok := findFlexible("x (a+b)*  c y", "(a+b)* c")
	require.True(t, ok)
	assert.Equal(t, Span{Start: 2, End: 11}, span)

	_, ok = findFlexible("anything", "   ")
	assert.False(t, ok)
}

func TestTokenWindow_TiePrefersLeftmost(t *testing.T) {
	opts := DefaultOptions()
	opts.TokenWindowTrigger = 0
	opts.TokenMatchRatio = 0.5
	s := TokenWindowStrategy(opts)

	content := "alpha beta zzz alpha beta"
	span, ok := s.Find(content, "alpha beta")
	require.True(t, ok)
	assert.Equal(t, 0, span.Start)
}

func TestPrefixAnchor_RejectsShortOriginals(t *testing.T) {
	s := PrefixAnchorStrategy(DefaultOptions())
	_, ok := s.Find("an is of it", "an is")
	assert.False(t, ok)
}
