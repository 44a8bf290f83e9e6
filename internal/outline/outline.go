// Package outline turns a markdown template into a flat table of contents.
package outline

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// IntroTitle names the entry holding text that precedes the first heading.
const IntroTitle = "Introduction"

// Entry is one heading of a template with the raw markdown below it.
// A flat list is easier to turn into document sections than a tree.
type Entry struct {
	Title    string `json:"title"`
	Level    int    `json:"level"`
	Body     string `json:"body"`
	HasTable bool   `json:"has_table,omitempty"`
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Parse only looks at top-level headings; headings nested in lists or
// quotes stay part of the surrounding body.
func Parse(markdown string) []Entry {
	src := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(src))

	var entries []Entry
	cur := Entry{Title: IntroTitle, Level: 0}
	bodyStart := 0

	flush := func(end int) {
		if end > bodyStart {
			cur.Body = strings.TrimSpace(string(src[bodyStart:end]))
		}
		if cur.Level > 0 || cur.Body != "" {
			entries = append(entries, cur)
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			if n.Kind() == extast.KindTable {
				cur.HasTable = true
			}
			continue
		}
		start, end, ok := headingBounds(h, src)
		if !ok {
			continue
		}
		flush(start)
		cur = Entry{Title: headingTitle(h, src), Level: h.Level}
		bodyStart = end
	}
	flush(len(src))
	return entries
}

func headingTitle(h *ast.Heading, src []byte) string {
	return strings.Join(strings.Fields(string(h.Lines().Value(src))), " ")
}

// headingBounds returns the byte range of the heading's source lines,
// including a setext underline.
func headingBounds(h *ast.Heading, src []byte) (int, int, bool) {
	lines := h.Lines()
	if lines.Len() == 0 {
		return 0, 0, false
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)

	start := bytes.LastIndexByte(src[:first.Start], '\n') + 1
	end := lineEnd(src, max(last.Start, last.Stop-1))
	if !bytes.HasPrefix(bytes.TrimLeft(src[start:first.Start], " "), []byte("#")) {
		end = lineEnd(src, end)
	}
	return start, end, true
}

func lineEnd(src []byte, from int) int {
	if from >= len(src) {
		return len(src)
	}
	i := bytes.IndexByte(src[from:], '\n')
	if i < 0 {
		return len(src)
	}
	return from + i + 1
}
