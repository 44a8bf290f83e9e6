package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTopK    = 3
	excerptMaxRune = 300
)

// Retriever ingests source text and looks up passages relevant to an edit.
type Retriever struct {
	embedder Embedder
	index    Indexer
	size     int
	overlap  int
	log      logrus.FieldLogger
}

func NewRetriever(e Embedder, idx Indexer, log logrus.FieldLogger) *Retriever {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Retriever{
		embedder: e,
		index:    idx,
		size:     DefaultChunkSize,
		overlap:  DefaultChunkOverlap,
		log:      log.WithField("component", "research"),
	}
}

// Ingest chunks, embeds and stores a source document. It returns the number
// of stored passages.
func (r *Retriever) Ingest(ctx context.Context, sourceID, text string) (int, error) {
	if strings.TrimSpace(sourceID) == "" {
		sourceID = uuid.NewString()
	}
	chunks := Chunk(text, r.size, r.overlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := r.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to embed source %s: %w", sourceID, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(chunks))
	}

	items := make([]VectorItem, len(chunks))
	for i, c := range chunks {
		items[i] = VectorItem{
			Passage: Passage{
				ID:       fmt.Sprintf("%s#%d", sourceID, i),
				SourceID: sourceID,
				Ordinal:  i,
				Text:     c,
			},
			Embedding: vectors[i],
		}
	}
	if err := r.index.Add(ctx, items); err != nil {
		return 0, fmt.Errorf("failed to store passages for %s: %w", sourceID, err)
	}
	r.log.WithFields(logrus.Fields{"source": sourceID, "passages": len(items)}).Info("source ingested")
	return len(items), nil
}

func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Passage, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected 1", len(vecs))
	}
	return r.index.Search(ctx, vecs[0], topK)
}

// Context returns the formatted research block for a prompt. Retrieval
// failures are logged and yield an empty block.
func (r *Retriever) Context(ctx context.Context, query string, topK int) string {
	if strings.TrimSpace(query) == "" {
		return ""
	}
	passages, err := r.Search(ctx, query, topK)
	if err != nil {
		r.log.WithError(err).Warn("research retrieval failed")
		return ""
	}
	return FormatPassages(passages)
}

// FormatPassages renders passages as numbered "Source N:" excerpts.
func FormatPassages(passages []Passage) string {
	parts := make([]string, 0, len(passages))
	for i, p := range passages {
		text := []rune(p.Text)
		if len(text) > excerptMaxRune {
			text = text[:excerptMaxRune]
		}
		parts = append(parts, fmt.Sprintf("Source %d: %s...", i+1, string(text)))
	}
	return strings.Join(parts, "\n")
}
