package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"regdraft/internal/document"
	apperrors "regdraft/internal/errors"
	"regdraft/internal/research"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// single connection: transactions never interleave
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			schema_version TEXT,
			title TEXT,
			template_id TEXT,
			session_id TEXT,
			generated_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS sections (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			title TEXT,
			level INTEGER,
			ord INTEGER,
			content TEXT,
			content_type TEXT,
			hash TEXT,
			updated_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS edits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT,
			section_id TEXT,
			kind TEXT,
			strategy TEXT,
			before_hash TEXT,
			after_hash TEXT,
			summary TEXT,
			created_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			source_id TEXT,
			ordinal INTEGER,
			content TEXT,
			embedding BLOB
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sections_document ON sections(document_id);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_section ON edits(section_id);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- DocumentStore ---

func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *document.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, schema_version, title, template_id, session_id, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version=excluded.schema_version,
			title=excluded.title,
			template_id=excluded.template_id,
			session_id=excluded.session_id,
			generated_at=excluded.generated_at
	`, doc.ID, doc.SchemaVersion, doc.Title, doc.TemplateID, doc.SessionID, formatTime(doc.GeneratedAt))
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	// Sections dropped from the document are removed.
	if _, err := tx.ExecContext(ctx, "DELETE FROM sections WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to reset sections: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sections (id, document_id, title, level, ord, content, content_type, hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sec := range doc.Sections {
		if _, err := stmt.ExecContext(ctx, sec.ID, doc.ID, sec.Title, sec.Level, sec.Order, sec.Content,
			string(sec.ContentType), sec.Hash, formatTime(sec.UpdatedAt)); err != nil {
			return fmt.Errorf("failed to save section %s: %w", sec.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadDocument(ctx context.Context, id string) (*document.Document, error) {
	var doc document.Document
	var generatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, schema_version, title, template_id, session_id, generated_at FROM documents WHERE id = ?", id).
		Scan(&doc.ID, &doc.SchemaVersion, &doc.Title, &doc.TemplateID, &doc.SessionID, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NotFoundError{Resource: "document", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	doc.GeneratedAt = parseTime(generatedAt)

	rows, err := s.db.QueryContext(ctx, "SELECT "+sectionColumns+" FROM sections WHERE document_id = ? ORDER BY ord, id", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		doc.Sections = append(doc.Sections, *sec)
	}
	return &doc, rows.Err()
}

const sectionColumns = "id, title, level, ord, content, content_type, hash, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSection(r rowScanner) (*document.Section, error) {
	var sec document.Section
	var contentType, updatedAt string
	if err := r.Scan(&sec.ID, &sec.Title, &sec.Level, &sec.Order, &sec.Content, &contentType, &sec.Hash, &updatedAt); err != nil {
		return nil, err
	}
	sec.ContentType = document.ContentType(contentType)
	sec.UpdatedAt = parseTime(updatedAt)
	return &sec, nil
}

func (s *SQLiteStore) GetSection(ctx context.Context, id string) (*document.Section, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sectionColumns+" FROM sections WHERE id = ?", id)
	sec, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NotFoundError{Resource: "section", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query section: %w", err)
	}
	return sec, nil
}

// --- SectionStore ---

func (s *SQLiteStore) GetSectionContent(ctx context.Context, id string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, "SELECT content FROM sections WHERE id = ?", id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &apperrors.NotFoundError{Resource: "section", ID: id}
	}
	if err != nil {
		return "", fmt.Errorf("failed to query section content: %w", err)
	}
	return content, nil
}

func (s *SQLiteStore) SetSectionContent(ctx context.Context, id, content string) (*document.Section, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	sec, err := scanSection(tx.QueryRowContext(ctx, "SELECT "+sectionColumns+" FROM sections WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apperrors.NotFoundError{Resource: "section", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query section: %w", err)
	}

	sec.SetContent(content, s.now().UTC())
	if _, err := tx.ExecContext(ctx, "UPDATE sections SET content = ?, hash = ?, updated_at = ? WHERE id = ?",
		sec.Content, sec.Hash, formatTime(sec.UpdatedAt), id); err != nil {
		return nil, fmt.Errorf("failed to update section: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sec, nil
}

// --- EditLog ---

func (s *SQLiteStore) RecordEdit(ctx context.Context, rec EditRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO edits (request_id, section_id, kind, strategy, before_hash, after_hash, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.RequestID, rec.SectionID, rec.Kind, rec.Strategy, rec.BeforeHash, rec.AfterHash, rec.Summary, formatTime(rec.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to record edit: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) ListEdits(ctx context.Context, sectionID string) ([]EditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, section_id, kind, strategy, before_hash, after_hash, summary, created_at
		FROM edits WHERE section_id = ? ORDER BY id
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edits: %w", err)
	}
	defer rows.Close()

	var out []EditRecord
	for rows.Next() {
		var rec EditRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.SectionID, &rec.Kind, &rec.Strategy,
			&rec.BeforeHash, &rec.AfterHash, &rec.Summary, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan edit: %w", err)
		}
		rec.CreatedAt = parseTime(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- VectorStore ---

func (s *SQLiteStore) SaveEmbeddings(ctx context.Context, items []research.VectorItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, source_id, ordinal, content, embedding) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id=excluded.source_id,
			ordinal=excluded.ordinal,
			content=excluded.content,
			embedding=excluded.embedding
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, item := range items {
		buf := new(bytes.Buffer)
		if err := binary.Write(buf, binary.LittleEndian, item.Embedding); err != nil {
			return err
		}
		p := item.Passage
		if _, err := stmt.ExecContext(ctx, p.ID, p.SourceID, p.Ordinal, p.Text, buf.Bytes()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SearchSimilar ranks every stored passage by cosine similarity in memory.
// Uploaded research sets stay small enough for a full scan.
func (s *SQLiteStore) SearchSimilar(ctx context.Context, queryVector []float32, topK int) ([]research.Passage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, source_id, ordinal, content, embedding FROM chunks")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type candidate struct {
		passage research.Passage
		score   float32
	}
	var candidates []candidate

	for rows.Next() {
		var p research.Passage
		var blob []byte
		if err := rows.Scan(&p.ID, &p.SourceID, &p.Ordinal, &p.Text, &blob); err != nil {
			return nil, err
		}
		embedding := make([]float32, len(blob)/4)
		if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &embedding); err != nil {
			continue
		}
		candidates = append(candidates, candidate{passage: p, score: cosineSimilarity(queryVector, embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	result := make([]research.Passage, len(candidates))
	for i, c := range candidates {
		result[i] = c.passage
	}
	return result, nil
}

func (s *SQLiteStore) DeleteSource(ctx context.Context, sourceID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE source_id = ?", sourceID)
	return err
}

// Add implements research.Indexer.
func (s *SQLiteStore) Add(ctx context.Context, items []research.VectorItem) error {
	return s.SaveEmbeddings(ctx, items)
}

// Search implements research.Indexer.
func (s *SQLiteStore) Search(ctx context.Context, queryVector []float32, topK int) ([]research.Passage, error) {
	return s.SearchSimilar(ctx, queryVector, topK)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float32
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB))))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
