package document

import (
	"sort"
	"strings"
)

// RenderMarkdown exports the document in section order. Sections keep their
// heading level; empty sections still emit their heading so the structure
// of the template survives.
func RenderMarkdown(d *Document) string {
	var sb strings.Builder
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = "Untitled Document"
	}
	sb.WriteString("# " + title + "\n")

	sections := append([]Section(nil), d.Sections...)
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].Order < sections[j].Order
	})

	for _, s := range sections {
		level := s.Level
		level = min(max(level, 1), 5)
		// document title takes level 1, so sections shift down one
		sb.WriteString("\n" + strings.Repeat("#", level+1) + " " + s.Title + "\n")
		if content := strings.TrimSpace(s.Content); content != "" {
			sb.WriteString("\n" + content + "\n")
		}
	}
	return sb.String()
}
