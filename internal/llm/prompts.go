package llm

import (
	"fmt"
	"sort"
	"strings"

	apperrors "regdraft/internal/errors"
)

type Preset string

const (
	PresetShorten      Preset = "shorten"
	PresetClarify      Preset = "clarify"
	PresetImproveFlow  Preset = "improve_flow"
	PresetMakeConcise  Preset = "make_concise"
	PresetExpandDetail Preset = "expand_detail"
	PresetSimplify     Preset = "simplify"
)

type presetPrompt struct {
	task    string
	goals   []string
	useRAG  bool
	heading string
}

var presets = map[Preset]presetPrompt{
	PresetShorten: {
		task:    "Shorten the following content while preserving all key points and technical accuracy. Remove redundancy and wordiness but keep the essential meaning and regulatory compliance requirements.",
		heading: "Provide a shortened version that:",
		goals: []string{
			"Retains all critical technical information",
			"Maintains regulatory compliance language",
			"Removes unnecessary words and phrases",
			"Preserves the original tone and structure",
		},
	},
	PresetClarify: {
		task:    "Improve the clarity and readability of the following content while maintaining technical accuracy and regulatory compliance.",
		heading: "Provide a clarified version that:",
		goals: []string{
			"Uses clearer, more direct language",
			"Improves sentence structure",
			"Keeps all technical terms and regulatory requirements",
			"Does not change the meaning",
		},
	},
	PresetImproveFlow: {
		task:    "Improve the logical flow and transitions in the following content while maintaining technical accuracy and regulatory compliance.",
		heading: "Provide an improved version that:",
		goals: []string{
			"Enhances transitions between ideas",
			"Creates a better logical progression",
			"Keeps all technical information",
		},
	},
	PresetMakeConcise: {
		task:    "Make the following content more concise by removing redundancy and unnecessary words while preserving all essential information.",
		heading: "Provide a concise version that:",
		goals: []string{
			"Eliminates redundant phrases and information",
			"Uses more efficient language",
			"Keeps all critical technical details",
			"Preserves regulatory compliance requirements",
		},
	},
	PresetExpandDetail: {
		task:    "Add more comprehensive detail and explanation to the following content while maintaining accuracy and regulatory compliance.",
		heading: "Provide an expanded version that:",
		useRAG:  true,
		goals: []string{
			"Adds relevant technical details from the available sources",
			"Provides more comprehensive explanations",
			"Maintains accuracy and regulatory compliance",
		},
	},
	PresetSimplify: {
		task:    "Simplify the language and structure of the following content while maintaining technical accuracy and all essential information.",
		heading: "Provide a simplified version that:",
		goals: []string{
			"Uses simpler, more accessible language",
			"Breaks down complex concepts",
			"Keeps all technical and regulatory requirements",
		},
	},
}

var formattingRules = []string{
	"Maintains the EXACT same formatting (paragraphs, headers, lists)",
	"Keeps all subsection headers and organizational structure",
	"Does NOT add any new references or citations",
	"Returns only the edited content, with no introduction or explanation",
}

// Presets lists the known preset names in a stable order.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Flags struct {
	UseExternalResearch       bool `json:"use_external_research"`
	MaintainTone              bool `json:"maintain_tone"`
	PreserveTechnicalAccuracy bool `json:"preserve_technical_accuracy"`
}

// DefaultFlags keeps tone and accuracy on, research off.
func DefaultFlags() Flags {
	return Flags{MaintainTone: true, PreserveTechnicalAccuracy: true}
}

// Instructions describe how the user wants a target rewritten. A known
// preset takes precedence over FreeText.
type Instructions struct {
	Preset   Preset `json:"preset,omitempty"`
	FreeText string `json:"free_text,omitempty"`
	Flags    Flags  `json:"flags"`
}

func (in Instructions) usesPreset() bool {
	_, ok := presets[in.Preset]
	return ok
}

func (in Instructions) Validate() error {
	if in.usesPreset() || strings.TrimSpace(in.FreeText) != "" {
		return nil
	}
	if in.Preset != "" {
		return &apperrors.ValidationError{Field: "preset", Message: fmt.Sprintf("unknown preset %q", in.Preset)}
	}
	return &apperrors.ValidationError{Field: "instructions", Message: "either preset or free text must be provided"}
}

// WantsResearch reports whether a research context would be used by the prompt.
func (in Instructions) WantsResearch() bool {
	if !in.Flags.UseExternalResearch {
		return false
	}
	if in.usesPreset() {
		return presets[in.Preset].useRAG
	}
	return true
}

// ResearchQuery is the text used to look up supporting sources.
func (in Instructions) ResearchQuery(target string) string {
	if in.usesPreset() {
		return runePrefix(target, 200)
	}
	return strings.TrimSpace(in.FreeText + " " + runePrefix(target, 100))
}

// PromptBuilder constructs edit and summary prompts.
type PromptBuilder struct{}

func (pb *PromptBuilder) BuildEditPrompt(target string, in Instructions, research string) string {
	if in.usesPreset() {
		return pb.buildPresetPrompt(target, presets[in.Preset], in, research)
	}
	return pb.buildFreeTextPrompt(target, in, research)
}

func (pb *PromptBuilder) buildPresetPrompt(target string, p presetPrompt, in Instructions, research string) string {
	var sb strings.Builder
	sb.WriteString(p.task)
	sb.WriteString("\n\nContent to edit:\n")
	sb.WriteString(target)
	sb.WriteString("\n")

	if p.useRAG && in.Flags.UseExternalResearch {
		sb.WriteString("\n")
		if strings.TrimSpace(research) == "" {
			sb.WriteString("No additional context found in uploaded documents.\n")
		} else {
			sb.WriteString("Additional context from uploaded documents:\n")
			sb.WriteString(research)
			sb.WriteString("\n\nUse this additional information to enhance the content.\n")
		}
	}

	sb.WriteString("\n" + p.heading + "\n")
	for _, g := range p.goals {
		sb.WriteString("- " + g + "\n")
	}
	for _, r := range formattingRules {
		sb.WriteString("- " + r + "\n")
	}
	return sb.String()
}

func (pb *PromptBuilder) buildFreeTextPrompt(target string, in Instructions, research string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert regulatory writer. Edit the following content according to these instructions: %s\n", strings.TrimSpace(in.FreeText))
	sb.WriteString("\nContent to edit:\n")
	sb.WriteString(target)
	sb.WriteString("\n")

	if in.Flags.UseExternalResearch && strings.TrimSpace(research) != "" {
		sb.WriteString("\nAdditional context from uploaded documents:\n")
		sb.WriteString(research)
		sb.WriteString("\n")
	}

	sb.WriteString("\nCRITICAL INSTRUCTIONS:\n")
	if in.Flags.MaintainTone {
		sb.WriteString("- Maintain the original tone and style\n")
	} else {
		sb.WriteString("- Feel free to adjust tone as needed\n")
	}
	if in.Flags.PreserveTechnicalAccuracy {
		sb.WriteString("- Preserve all technical accuracy and regulatory compliance\n")
	} else {
		sb.WriteString("- Focus on the requested changes\n")
	}
	sb.WriteString("- Maintain the EXACT same formatting (paragraphs, headers, lists)\n")
	sb.WriteString("- Keep all subsection headers and organizational structure\n")
	sb.WriteString("- Do NOT add any new references or citations\n")
	sb.WriteString("- Do NOT add quotation marks or phrases like \"Here is...\" around the response\n")
	sb.WriteString("- If bullets are requested, convert ONLY the given content to bullets\n")
	sb.WriteString("\nYour response must start directly with the edited content.\n")
	return sb.String()
}

func (pb *PromptBuilder) BuildSummaryPrompt(original, edited string) string {
	var sb strings.Builder
	sb.WriteString("Compare the original and edited content and give a brief summary of the key changes made.\n")
	sb.WriteString("\nOriginal:\n" + runePrefix(original, 200) + "...\n")
	sb.WriteString("\nEdited:\n" + runePrefix(edited, 200) + "...\n")
	sb.WriteString("\nBrief summary of the main changes:")
	return sb.String()
}

func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
