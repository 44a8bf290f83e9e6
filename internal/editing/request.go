// Package editing runs the suggested-edit lifecycle: generate an edit for a
// selection or a whole section, then splice it back into the section.
package editing

import (
	"strings"

	apperrors "regdraft/internal/errors"
	"regdraft/internal/llm"
	"regdraft/internal/replace"
	"regdraft/internal/selection"
)

// StrategyWholeSection names edits that overwrite the whole section.
const StrategyWholeSection = "whole-section"

// EditRequest is created when the user confirms an edit action and is
// consumed once the edit is applied.
type EditRequest struct {
	ID           string               `json:"id"`
	SectionID    string               `json:"section_id"`
	SessionID    string               `json:"session_id,omitempty"`
	Kind         selection.TargetKind `json:"kind"`
	Target       string               `json:"target"`
	Instructions llm.Instructions     `json:"instructions"`
}

func (r EditRequest) Validate() error {
	if strings.TrimSpace(r.SectionID) == "" {
		return &apperrors.ValidationError{Field: "section_id", Message: "is required"}
	}
	switch r.Kind {
	case "", selection.TargetSelected, selection.TargetSection:
	default:
		return &apperrors.ValidationError{Field: "kind", Message: "must be selected or section"}
	}
	return r.Instructions.Validate()
}

// Suggestion is the generated edit awaiting confirmation.
type Suggestion struct {
	RequestID   string               `json:"request_id"`
	SectionID   string               `json:"section_id"`
	Kind        selection.TargetKind `json:"kind"`
	Original    string               `json:"original"`
	EditedText  string               `json:"edited_text"`
	Summary     string               `json:"summary"`
	ChangesMade []string             `json:"changes_made"`
	// Rejected is set when the requested selection was not found in the
	// section and the whole section was edited instead.
	Rejected bool `json:"selection_rejected,omitempty"`
}

// Outcome describes a successful write to a section.
type Outcome struct {
	RequestID string       `json:"request_id,omitempty"`
	SectionID string       `json:"section_id"`
	Content   string       `json:"content"`
	Hash      string       `json:"hash"`
	Strategy  string       `json:"strategy"`
	Span      replace.Span `json:"span"`
	Matched   string       `json:"matched,omitempty"`
}
