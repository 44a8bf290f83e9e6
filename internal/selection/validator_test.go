package selection

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int, present func(i int) bool) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		if present(i) {
			parts[i] = fmt.Sprintf("present%02d", i)
		} else {
			parts[i] = fmt.Sprintf("missing%02d", i)
		}
	}
	return strings.Join(parts, " ")
}

func TestIsSelectionValid(t *testing.T) {
	v := NewValidator(DefaultThresholds())
	content := words(20, func(int) bool { return true }) + ". Stability data support a 24 month shelf life."

	tests := []struct {
		name      string
		selection string
		want      bool
	}{
		{"exact substring", "Stability data support", true},
		{"empty selection", "", false},
		{"whitespace only", "   \n ", false},
		{"short non-substring", "mismatch", false},
		{"short drifted below normalize threshold", "Stability  data   support a 24", false},
		{
			"collapsed whitespace match",
			strings.Replace(words(20, func(int) bool { return true }), " ", "\n  ", 5),
			true,
		},
		{"forty percent present", words(20, func(i int) bool { return i%5 < 2 }), true},
		{"twenty percent present", words(20, func(i int) bool { return i%5 == 0 }), false},
		{"large selection accepted", strings.Repeat("unrelated text ", 30), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.IsSelectionValid(tt.selection, content))
		})
	}
}

func TestIsSelectionValid_EmptyContent(t *testing.T) {
	v := NewValidator(DefaultThresholds())
	assert.False(t, v.IsSelectionValid("anything at all", ""))
}

func TestIsSelectionValid_NormalizesUnicode(t *testing.T) {
	v := NewValidator(DefaultThresholds())
	// decomposed e + combining acute against precomposed é
	assert.True(t, v.IsSelectionValid("Pre\u0301paration", "La Pr\u00e9paration injectable"))
}

func TestCleanWord(t *testing.T) {
	assert.Equal(t, "lots", cleanWord("Lots."))
	assert.Equal(t, "24", cleanWord("(24)"))
	assert.Equal(t, "", cleanWord("--"))
}
