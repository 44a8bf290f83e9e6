package llm

import (
	"strings"
	"testing"

	apperrors "regdraft/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructions_Validate(t *testing.T) {
	assert.NoError(t, Instructions{Preset: PresetShorten}.Validate())
	assert.NoError(t, Instructions{FreeText: "make it formal"}.Validate())
	assert.NoError(t, Instructions{Preset: "bogus", FreeText: "make it formal"}.Validate())

	err := Instructions{Preset: "bogus"}.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "bogus")

	assert.True(t, apperrors.IsValidation(Instructions{FreeText: "   "}.Validate()))
}

func TestInstructions_WantsResearch(t *testing.T) {
	on := Flags{UseExternalResearch: true}
	assert.True(t, Instructions{Preset: PresetExpandDetail, Flags: on}.WantsResearch())
	assert.False(t, Instructions{Preset: PresetShorten, Flags: on}.WantsResearch())
	assert.True(t, Instructions{FreeText: "add data", Flags: on}.WantsResearch())
	assert.False(t, Instructions{FreeText: "add data"}.WantsResearch())
}

func TestBuildEditPrompt_Preset(t *testing.T) {
	pb := &PromptBuilder{}
	p := pb.BuildEditPrompt("Para B.", Instructions{Preset: PresetClarify}, "")
	assert.Contains(t, p, "Improve the clarity")
	assert.Contains(t, p, "Content to edit:\nPara B.\n")
	assert.Contains(t, p, "Does NOT add any new references")
	assert.NotContains(t, p, "uploaded documents")
}

func TestBuildEditPrompt_ExpandDetailResearch(t *testing.T) {
	pb := &PromptBuilder{}
	in := Instructions{Preset: PresetExpandDetail, Flags: Flags{UseExternalResearch: true}}

	p := pb.BuildEditPrompt("Para B.", in, "Source 1: stability data...")
	assert.Contains(t, p, "Additional context from uploaded documents:\nSource 1: stability data...")

	p = pb.BuildEditPrompt("Para B.", in, "")
	assert.Contains(t, p, "No additional context found in uploaded documents.")
}

func TestBuildEditPrompt_FreeTextFlags(t *testing.T) {
	pb := &PromptBuilder{}
	p := pb.BuildEditPrompt("Para B.", Instructions{FreeText: "use bullets", Flags: DefaultFlags()}, "")
	assert.Contains(t, p, "according to these instructions: use bullets")
	assert.Contains(t, p, "Maintain the original tone and style")
	assert.Contains(t, p, "Preserve all technical accuracy")

	p = pb.BuildEditPrompt("Para B.", Instructions{FreeText: "use bullets"}, "ignored")
	assert.Contains(t, p, "Feel free to adjust tone")
	assert.Contains(t, p, "Focus on the requested changes")
	assert.NotContains(t, p, "ignored")
}

func TestBuildSummaryPrompt_TruncatesPreviews(t *testing.T) {
	pb := &PromptBuilder{}
	long := strings.Repeat("é", 500)
	p := pb.BuildSummaryPrompt(long, "short")
	assert.Contains(t, p, strings.Repeat("é", 200)+"...")
	assert.NotContains(t, p, strings.Repeat("é", 201))
}

func TestPresets(t *testing.T) {
	assert.Len(t, Presets(), 6)
	assert.Equal(t, PresetClarify, Presets()[0])
}
