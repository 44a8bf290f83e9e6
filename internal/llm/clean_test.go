package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Tablets are stored at 25 °C.  ", "Tablets are stored at 25 °C."},
		{"markdown fence", "```markdown\nEdited text.\n```", "Edited text."},
		{"bare fence", "```\nEdited text.\n```", "Edited text."},
		{"lead in", "Here is the revised text:\nEdited text.", "Edited text."},
		{"lead in same line", "Here's the edited version: Edited text.", "Edited text."},
		{"wrapping quotes", "\"Edited text.\"", "Edited text."},
		{"curly quotes", "“Edited text.”", "Edited text."},
		{"inner quotes kept", "\"a\" and \"b\"", "\"a\" and \"b\""},
		{"whitespace only", " \n\t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanOutput(tt.in))
		})
	}
}
