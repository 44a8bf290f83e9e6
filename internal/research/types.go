// Package research retrieves supporting passages from uploaded source
// documents to enrich suggested edits.
package research

import "context"

// Passage is one chunk of an uploaded source document.
type Passage struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	Ordinal  int    `json:"ordinal"`
	Text     string `json:"text"`
}

// Embedder converts text to vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorItem pairs a passage with its embedding.
type VectorItem struct {
	Passage   Passage
	Embedding []float32
}

// Indexer stores and searches embedded passages.
type Indexer interface {
	Add(ctx context.Context, items []VectorItem) error
	Search(ctx context.Context, queryVector []float32, topK int) ([]Passage, error)
}
