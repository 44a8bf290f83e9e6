package document

import (
	"strings"
	"testing"
	"time"

	apperrors "regdraft/internal/errors"
	"regdraft/internal/outline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleEntries() []outline.Entry {
	return []outline.Entry{
		{Title: "Description", Level: 1, Body: "Film-coated tablet."},
		{Title: "Composition", Level: 2, Body: "| a | b |\n|---|---|\n| 1 | 2 |", HasTable: true},
		{Title: "Composition", Level: 2},
		{Title: "Introduction", Level: 0, Body: "Preamble."},
	}
}

func TestFromOutline(t *testing.T) {
	doc := FromOutline("  Module 3 ", "tpl-1", "sess-1", sampleEntries(), fixedNow)

	assert.Equal(t, "Module 3", doc.Title)
	assert.NotEmpty(t, doc.ID)
	require.Len(t, doc.Sections, 4)

	assert.Equal(t, SectionID(doc.ID, "description"), doc.Sections[0].ID)
	assert.Equal(t, SectionID(doc.ID, "composition"), doc.Sections[1].ID)
	assert.Equal(t, SectionID(doc.ID, "composition-2"), doc.Sections[2].ID)
	assert.Equal(t, ContentTable, doc.Sections[1].ContentType)
	assert.Equal(t, ContentPlain, doc.Sections[0].ContentType)
	assert.Equal(t, 1, doc.Sections[3].Level, "level is clamped to at least 1")

	for i, s := range doc.Sections {
		assert.Equal(t, i, s.Order)
		assert.Equal(t, SectionHash(s.Title, s.Content), s.Hash)
	}
	require.NoError(t, doc.Validate())
}

func TestSectionHash_ChangesWithContent(t *testing.T) {
	a := SectionHash("T", "one")
	assert.True(t, strings.HasPrefix(a, "sha256:"))
	assert.Equal(t, a, SectionHash(" T ", "one"))
	assert.NotEqual(t, a, SectionHash("T", "two"))
}

func TestSetContent(t *testing.T) {
	s := Section{ID: "x", Title: "T"}
	s.SetContent("body", fixedNow)
	assert.Equal(t, "body", s.Content)
	assert.Equal(t, SectionHash("T", "body"), s.Hash)
	assert.Equal(t, fixedNow, s.UpdatedAt)
}

func TestValidate(t *testing.T) {
	base := func() *Document {
		return FromOutline("Doc", "", "", sampleEntries()[:2], fixedNow)
	}

	t.Run("duplicate ids", func(t *testing.T) {
		d := base()
		d.Sections[1].ID = d.Sections[0].ID
		err := d.Validate()
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown content type", func(t *testing.T) {
		d := base()
		d.Sections[0].ContentType = "image"
		err := d.Validate()
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("schema rejects bad level", func(t *testing.T) {
		d := base()
		d.Sections[0].Level = 9
		err := d.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema validation")
	})

	t.Run("schema rejects tampered hash", func(t *testing.T) {
		d := base()
		d.Sections[0].Hash = "md5:abc"
		err := d.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schema validation")
	})

	t.Run("missing id", func(t *testing.T) {
		d := base()
		d.ID = ""
		assert.True(t, apperrors.IsValidation(d.Validate()))
	})
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "3-2-p-1-description", Slug("3.2.P.1 Description"))
	assert.Equal(t, "section", Slug("  ---  "))
	assert.Equal(t, "stability-data", Slug("Stability  Data!"))
}

func TestRenderMarkdown(t *testing.T) {
	doc := FromOutline("Quality Overall Summary", "", "", []outline.Entry{
		{Title: "Stability", Level: 2, Body: "24 months."},
		{Title: "Description", Level: 1, Body: "Tablet."},
		{Title: "Empty", Level: 1},
	}, fixedNow)
	doc.Sections[0].Order = 5

	want := "# Quality Overall Summary\n" +
		"\n## Description\n\nTablet.\n" +
		"\n## Empty\n" +
		"\n### Stability\n\n24 months.\n"
	assert.Equal(t, want, RenderMarkdown(doc))
}
