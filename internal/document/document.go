// Package document holds the drafted regulatory document and its sections.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	apperrors "regdraft/internal/errors"
	"regdraft/internal/outline"

	"github.com/google/uuid"
)

const SchemaVersion = "v1"

type ContentType string

const (
	ContentPlain ContentType = "plain"
	ContentTable ContentType = "table"
)

type Document struct {
	SchemaVersion string    `json:"schema_version"`
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	TemplateID    string    `json:"template_id,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	Sections      []Section `json:"sections"`
	GeneratedAt   time.Time `json:"generated_at"`
}

type Section struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Level       int         `json:"level"`
	Order       int         `json:"order"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	Hash        string      `json:"hash"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// SetContent replaces the section body and refreshes its hash.
func (s *Section) SetContent(content string, now time.Time) {
	s.Content = content
	s.Hash = SectionHash(s.Title, content)
	s.UpdatedAt = now
}

// SectionHash fingerprints a section so edits can record before/after state.
func SectionHash(title, content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(title) + "\n" + content))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// SectionID scopes a title slug to its document.
func SectionID(docID, slug string) string {
	return docID + "." + slug
}

// FromOutline builds a document whose sections follow the template headings,
// seeded with the template's guidance text.
func FromOutline(title, templateID, sessionID string, entries []outline.Entry, now time.Time) *Document {
	doc := &Document{
		SchemaVersion: SchemaVersion,
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(title),
		TemplateID:    templateID,
		SessionID:     sessionID,
		GeneratedAt:   now.UTC(),
	}
	if doc.Title == "" {
		doc.Title = "Untitled Document"
	}

	used := make(map[string]int)
	for i, e := range entries {
		base := Slug(e.Title)
		slug := base
		if n := used[base]; n > 0 {
			slug = fmt.Sprintf("%s-%d", base, n+1)
		}
		used[base]++

		ct := ContentPlain
		if e.HasTable {
			ct = ContentTable
		}
		sec := Section{
			ID:          SectionID(doc.ID, slug),
			Title:       e.Title,
			Level:       max(1, e.Level),
			Order:       i,
			ContentType: ct,
		}
		sec.SetContent(e.Body, doc.GeneratedAt)
		doc.Sections = append(doc.Sections, sec)
	}
	return doc
}

func (d *Document) SectionByID(id string) *Section {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i]
		}
	}
	return nil
}

// Validate checks structural rules first and then the JSON schema.
func (d *Document) Validate() error {
	if d == nil {
		return &apperrors.ValidationError{Field: "document", Message: "is nil"}
	}
	if strings.TrimSpace(d.ID) == "" {
		return &apperrors.ValidationError{Field: "id", Message: "is required"}
	}
	seen := make(map[string]bool, len(d.Sections))
	for _, s := range d.Sections {
		if s.ID == "" {
			return &apperrors.ValidationError{Field: "sections.id", Message: "is required"}
		}
		if seen[s.ID] {
			return &apperrors.ValidationError{Field: "sections.id", Message: "duplicate section id " + s.ID}
		}
		seen[s.ID] = true
		switch s.ContentType {
		case ContentPlain, ContentTable:
		default:
			return &apperrors.ValidationError{Field: "sections.content_type", Message: fmt.Sprintf("unknown content type %q", s.ContentType)}
		}
	}
	return validateSchema(d)
}

// Slug turns a heading into a lowercase, dash separated identifier.
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	var b strings.Builder
	prevDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevDash = false
			continue
		}
		if !prevDash {
			b.WriteByte('-')
			prevDash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "section"
	}
	return out
}
