package research

import (
	"strings"
	"unicode"
)

const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// Chunk splits text into windows of at most size runes where consecutive
// windows share about overlap runes. Cuts prefer whitespace in the second
// half of a window.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var out []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			out = appendChunk(out, runes[start:])
			break
		}
		if cut := lastSpace(runes, start+size/2, end); cut > 0 {
			end = cut
		}
		out = appendChunk(out, runes[start:end])

		next := end - overlap
		if next <= start {
			next = end
		}
		// start the overlap on a word boundary
		for next < end && !unicode.IsSpace(runes[next-1]) {
			next++
		}
		start = next
	}
	return out
}

func lastSpace(runes []rune, from, to int) int {
	for i := to; i > from; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return -1
}

func appendChunk(out []string, r []rune) []string {
	s := strings.TrimSpace(string(r))
	if s == "" {
		return out
	}
	return append(out, s)
}
