package llm

import (
	"context"
	"fmt"
	"strings"
)

// Summarize asks the generator to describe the change. It is best effort:
// callers drop the error and use an empty summary.
func Summarize(ctx context.Context, gen Generator, original, edited string) (string, error) {
	pb := &PromptBuilder{}
	return gen.Generate(ctx, pb.BuildSummaryPrompt(original, edited))
}

// ChangesMade lists the operations applied to produce an edit.
func ChangesMade(in Instructions) []string {
	var out []string
	if in.usesPreset() {
		out = append(out, fmt.Sprintf("Applied %s preset", in.Preset))
	}
	if ft := strings.TrimSpace(in.FreeText); ft != "" && !in.usesPreset() {
		if len([]rune(ft)) > 50 {
			ft = runePrefix(ft, 50) + "..."
		}
		out = append(out, "Applied custom instructions: "+ft)
	}
	if in.WantsResearch() {
		out = append(out, "Enhanced with additional research from uploaded documents")
	}
	return out
}
