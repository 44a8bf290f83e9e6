package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"regdraft/internal/document"
	apperrors "regdraft/internal/errors"
	"regdraft/internal/outline"
	"regdraft/internal/research"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testDocument() *document.Document {
	return document.FromOutline("Module 3", "tpl", "sess", []outline.Entry{
		{Title: "Description", Level: 1, Body: "Para A. Para B. Para C."},
		{Title: "Composition", Level: 2, Body: "| a | b |", HasTable: true},
	}, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
}

func TestSQLiteStore_SaveAndLoadDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := testDocument()

	require.NoError(t, store.SaveDocument(ctx, doc))

	loaded, err := store.LoadDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, loaded.Title)
	assert.Equal(t, doc.GeneratedAt, loaded.GeneratedAt)
	require.Len(t, loaded.Sections, 2)
	assert.Equal(t, doc.Sections[0], loaded.Sections[0])
	assert.Equal(t, document.ContentTable, loaded.Sections[1].ContentType)
}

func TestSQLiteStore_SaveDocument_SnapshotSync(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := testDocument()
	require.NoError(t, store.SaveDocument(ctx, doc))

	removed := doc.Sections[1].ID
	doc.Sections = doc.Sections[:1]
	require.NoError(t, store.SaveDocument(ctx, doc))

	loaded, err := store.LoadDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Sections, 1)

	_, err = store.GetSection(ctx, removed)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LoadDocument(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.GetSectionContent(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	_, err = store.SetSectionContent(ctx, "missing", "x")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSQLiteStore_SetSectionContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	doc := testDocument()
	require.NoError(t, store.SaveDocument(ctx, doc))

	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	id := doc.Sections[0].ID
	sec, err := store.SetSectionContent(ctx, id, "Para A. Para B2. Para C.")
	require.NoError(t, err)
	assert.Equal(t, document.SectionHash(sec.Title, "Para A. Para B2. Para C."), sec.Hash)
	assert.NotEqual(t, doc.Sections[0].Hash, sec.Hash)

	content, err := store.GetSectionContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Para A. Para B2. Para C.", content)

	stored, err := store.GetSection(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fixed, stored.UpdatedAt)
	assert.Equal(t, sec.Hash, stored.Hash)
}

func TestSQLiteStore_EditLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id1, err := store.RecordEdit(ctx, EditRecord{RequestID: "r1", SectionID: "s", Kind: "selected", Strategy: "exact", BeforeHash: "h0", AfterHash: "h1"})
	require.NoError(t, err)
	id2, err := store.RecordEdit(ctx, EditRecord{RequestID: "r2", SectionID: "s", Kind: "section", Strategy: "whole-section", BeforeHash: "h1", AfterHash: "h2"})
	require.NoError(t, err)
	_, err = store.RecordEdit(ctx, EditRecord{RequestID: "r3", SectionID: "other"})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	edits, err := store.ListEdits(ctx, "s")
	require.NoError(t, err)
	require.Len(t, edits, 2)
	assert.Equal(t, "r1", edits[0].RequestID)
	assert.Equal(t, "whole-section", edits[1].Strategy)
	assert.False(t, edits[0].CreatedAt.IsZero())
}

func TestSQLiteStore_SearchSimilar(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []research.VectorItem{
		{Passage: research.Passage{ID: "a#0", SourceID: "a", Text: "stability"}, Embedding: []float32{1, 0}},
		{Passage: research.Passage{ID: "b#0", SourceID: "b", Text: "dissolution"}, Embedding: []float32{0, 1}},
		{Passage: research.Passage{ID: "b#1", SourceID: "b", Ordinal: 1, Text: "mixed"}, Embedding: []float32{0.7, 0.7}},
	}))

	got, err := store.Search(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a#0", got[0].ID)
	assert.Equal(t, "b#1", got[1].ID)
	assert.Equal(t, 1, got[1].Ordinal)

	require.NoError(t, store.DeleteSource(ctx, "a"))
	got, err = store.SearchSimilar(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.Equal(t, float32(0), cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, float32(0), cosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
