package llm

import (
	"regexp"
	"strings"
)

// leadIn matches chatty openers such as "Here is the revised text:" that
// models prepend despite being told not to.
var leadIn = regexp.MustCompile(`(?i)^(here\s+is|here's|here\s+are|the\s+(edited|revised|rewritten)\s+(content|text|version)\s+is)[^\n]*:\s*\n?`)

// CleanOutput strips markdown fences, a chatty lead-in line and wrapping
// quotes from a model response.
func CleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSpace(leadIn.ReplaceAllString(text, ""))

	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}} {
		if len(text) >= len(q[0])+len(q[1]) && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			inner := text[len(q[0]) : len(text)-len(q[1])]
			if !strings.Contains(inner, q[0]) {
				text = strings.TrimSpace(inner)
			}
			break
		}
	}
	return text
}
