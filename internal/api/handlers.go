package api

import (
	"net/http"
	"strings"
	"time"

	"regdraft/internal/document"
	"regdraft/internal/editing"
	apperrors "regdraft/internal/errors"
	"regdraft/internal/llm"
	"regdraft/internal/outline"
	"regdraft/internal/selection"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type createDocumentRequest struct {
	Title      string `json:"title"`
	TemplateID string `json:"template_id"`
	SessionID  string `json:"session_id"`
	// Outline is the template as markdown.
	Outline string `json:"outline"`
}

type putSectionRequest struct {
	Content string `json:"content"`
}

type suggestEditRequest struct {
	SectionID string `json:"section_id"`
	SessionID string `json:"session_id"`
	// Kind and Target may be left empty when SessionID is set; the session's
	// captured selection is resolved instead.
	Kind         selection.TargetKind `json:"kind"`
	Target       string               `json:"target"`
	Instructions llm.Instructions     `json:"instructions"`
}

type applyEditRequest struct {
	Original string `json:"original"`
	Edited   string `json:"edited"`
}

type replaceRequest struct {
	Edited string `json:"edited"`
}

type ingestRequest struct {
	SourceID string `json:"source_id"`
	Text     string `json:"text"`
}

const rejectedMessage = "Selected text was not found in the section; editing the whole section"

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		failure(c, http.StatusBadRequest, CodeBadRequest, "Invalid request body", err.Error())
		return false
	}
	return true
}

func (s *Server) createDocument(c *gin.Context) {
	var req createDocumentRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(c, &apperrors.ValidationError{Field: "title", Message: "is required"})
		return
	}

	doc := document.FromOutline(req.Title, req.TemplateID, req.SessionID, outline.Parse(req.Outline), time.Now().UTC())
	if err := doc.Validate(); err != nil {
		failure(c, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)
		return
	}
	if err := s.store.SaveDocument(c.Request.Context(), doc); err != nil {
		s.fail(c, err)
		return
	}
	s.log.WithField("document", doc.ID).WithField("sections", len(doc.Sections)).Info("document created")
	success(c, http.StatusCreated, doc, "")
}

func (s *Server) getDocument(c *gin.Context) {
	doc, err := s.store.LoadDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, doc, "")
}

func (s *Server) exportDocument(c *gin.Context) {
	doc, err := s.store.LoadDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+document.Slug(doc.Title)+`.md"`)
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(document.RenderMarkdown(doc)))
}

func (s *Server) getSection(c *gin.Context) {
	sec, err := s.store.GetSection(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, sec, "")
}

func (s *Server) putSection(c *gin.Context) {
	var req putSectionRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(c, &apperrors.ValidationError{Field: "content", Message: "must not be empty"})
		return
	}
	sec, err := s.store.SetSectionContent(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, sec, "")
}

func (s *Server) listEdits(c *gin.Context) {
	edits, err := s.store.ListEdits(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, edits, "")
}

func (s *Server) suggestEdit(c *gin.Context) {
	var body suggestEditRequest
	if !bindJSON(c, &body) {
		return
	}
	ctx := c.Request.Context()

	req := editing.EditRequest{
		ID:           uuid.NewString(),
		SectionID:    body.SectionID,
		SessionID:    body.SessionID,
		Kind:         body.Kind,
		Target:       body.Target,
		Instructions: body.Instructions,
	}
	if err := req.Validate(); err != nil {
		respondError(c, err)
		return
	}

	var message string
	if req.Kind == "" && strings.TrimSpace(req.Target) == "" && req.SessionID != "" && s.selections != nil {
		content, err := s.store.GetSectionContent(ctx, req.SectionID)
		if err != nil {
			s.fail(c, err)
			return
		}
		target, err := s.selections.Tracker(req.SessionID).Resolve(content)
		if err != nil {
			respondError(c, err)
			return
		}
		req.Kind, req.Target = target.Kind, target.Text
		if target.Rejected {
			message = rejectedMessage
		}
	}

	sug, err := s.editing.Suggest(ctx, req)
	if err != nil {
		s.fail(c, err)
		return
	}
	if sug.Rejected {
		message = rejectedMessage
	}
	success(c, http.StatusOK, sug, message)
}

func (s *Server) applyEdit(c *gin.Context) {
	var req applyEditRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := s.editing.Apply(c.Request.Context(), c.Param("id"), req.Original, req.Edited)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, out, "")
}

func (s *Server) replaceSection(c *gin.Context) {
	var req replaceRequest
	if !bindJSON(c, &req) {
		return
	}
	out, err := s.editing.ReplaceWholeSection(c.Request.Context(), c.Param("id"), req.Edited)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, out, "")
}

func (s *Server) applyPending(c *gin.Context) {
	out, err := s.editing.ApplyPending(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, out, "")
}

func (s *Server) replacePending(c *gin.Context) {
	out, err := s.editing.ReplacePending(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, out, "")
}

func (s *Server) discardPending(c *gin.Context) {
	s.editing.Discard(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) listPresets(c *gin.Context) {
	success(c, http.StatusOK, llm.Presets(), "")
}

func (s *Server) ingestSource(c *gin.Context) {
	if s.research == nil {
		failure(c, http.StatusServiceUnavailable, CodeBadRequest, "Research retrieval is not configured", nil)
		return
	}
	var req ingestRequest
	if !bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(c, &apperrors.ValidationError{Field: "text", Message: "must not be empty"})
		return
	}
	if req.SourceID == "" {
		req.SourceID = uuid.NewString()
	}
	n, err := s.research.Ingest(c.Request.Context(), req.SourceID, req.Text)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"source_id": req.SourceID, "chunks": n}, "")
}
