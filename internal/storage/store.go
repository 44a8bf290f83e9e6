package storage

import (
	"context"
	"time"

	"regdraft/internal/document"
	"regdraft/internal/research"
)

// Store combines document, edit history and vector storage.
type Store interface {
	DocumentStore
	SectionStore
	EditLog
	VectorStore
	Close() error
}

// SectionStore is the narrow view the editing service works against.
type SectionStore interface {
	GetSectionContent(ctx context.Context, id string) (string, error)
	// SetSectionContent replaces content and refreshes hash and updated_at.
	SetSectionContent(ctx context.Context, id, content string) (*document.Section, error)
}

type DocumentStore interface {
	// SaveDocument upserts the document and makes its section set match exactly.
	SaveDocument(ctx context.Context, doc *document.Document) error
	LoadDocument(ctx context.Context, id string) (*document.Document, error)
	GetSection(ctx context.Context, id string) (*document.Section, error)
}

// EditRecord is one applied change to a section.
type EditRecord struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	SectionID  string    `json:"section_id"`
	Kind       string    `json:"kind"`
	Strategy   string    `json:"strategy"`
	BeforeHash string    `json:"before_hash"`
	AfterHash  string    `json:"after_hash"`
	Summary    string    `json:"summary,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type EditLog interface {
	RecordEdit(ctx context.Context, rec EditRecord) (int64, error)
	ListEdits(ctx context.Context, sectionID string) ([]EditRecord, error)
}

// VectorStore defines operations for semantic search over research passages.
type VectorStore interface {
	SaveEmbeddings(ctx context.Context, items []research.VectorItem) error
	SearchSimilar(ctx context.Context, vector []float32, topK int) ([]research.Passage, error)
	DeleteSource(ctx context.Context, sourceID string) error
}
