// Package api exposes documents, sections, suggested edits and the
// selection channel over HTTP.
package api

import (
	"context"
	"net/http"

	"regdraft/internal/editing"
	"regdraft/internal/selection"
	"regdraft/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Ingester adds research source text to the retrieval index.
type Ingester interface {
	Ingest(ctx context.Context, sourceID, text string) (int, error)
}

type Options struct {
	Store      storage.Store
	Editing    *editing.Service
	Selections *selection.Registry
	// Research may be nil when no embedder is configured.
	Research        Ingester
	AllowedOrigins  []string
	GenerationRPS   float64
	GenerationBurst int
	Logger          logrus.FieldLogger
}

type Server struct {
	store      storage.Store
	editing    *editing.Service
	selections *selection.Registry
	research   Ingester
	log        logrus.FieldLogger
}

// NewRouter wires the HTTP and websocket routes.
func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	s := &Server{
		store:      opts.Store,
		editing:    opts.Editing,
		selections: opts.Selections,
		research:   opts.Research,
		log:        opts.Logger.WithField("component", "api"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.log), corsMiddleware(opts.AllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) { success(c, http.StatusOK, gin.H{"status": "ok"}, "") })

	limited := rateLimit(newClientLimiter(opts.GenerationRPS, opts.GenerationBurst))

	api := r.Group("/api")
	{
		api.POST("/documents", s.createDocument)
		api.GET("/documents/:id", s.getDocument)
		api.GET("/documents/:id/export.md", s.exportDocument)

		api.GET("/sections/:id", s.getSection)
		api.PUT("/sections/:id", s.putSection)
		api.GET("/sections/:id/edits", s.listEdits)
		api.POST("/sections/:id/apply-edit", s.applyEdit)
		api.POST("/sections/:id/replace", s.replaceSection)

		api.POST("/suggest-edit", limited, s.suggestEdit)
		api.POST("/edits/:id/apply", s.applyPending)
		api.POST("/edits/:id/replace", s.replacePending)
		api.DELETE("/edits/:id", s.discardPending)

		api.GET("/presets", s.listPresets)
		api.POST("/research/sources", limited, s.ingestSource)
	}

	r.GET("/ws/selection", s.selectionSocket)

	return r
}

// fail logs unexpected errors and writes the envelope.
func (s *Server) fail(c *gin.Context, err error) {
	respondError(c, err)
	if c.Writer.Status() >= 500 {
		s.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("request error")
	}
}
