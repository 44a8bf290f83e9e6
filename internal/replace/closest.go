package replace

import (
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// closestLimit caps the content size scanned for no-match diagnostics.
const closestLimit = 64 * 1024

// closestRegion finds the line range of content most similar to original.
// It is only used to describe a failed match, never to apply one.
func closestRegion(content, original string) (string, float64) {
	if content == "" || strings.TrimSpace(original) == "" || len(content) > closestLimit {
		return "", 0
	}

	contentLines := strings.Split(content, "\n")
	span := len(strings.Split(strings.TrimRight(original, "\n"), "\n"))
	if span > len(contentLines) {
		span = len(contentLines)
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 50 * time.Millisecond

	target := normalizeWhitespace(original)
	var best string
	var bestSim float64
	for i := 0; i+span <= len(contentLines); i++ {
		candidate := normalizeWhitespace(strings.Join(contentLines[i:i+span], "\n"))
		if candidate == "" {
			continue
		}
		if sim := similarity(dmp, candidate, target); sim > bestSim {
			best, bestSim = candidate, sim
		}
	}
	return best, bestSim
}

// similarity is 1 minus the Levenshtein distance over the longer length.
func similarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	sim := 1 - float64(distance)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}
