package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/repflow/internal/advisor"
	"github.com/claude/repflow/internal/storage"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      *storage.DB
	advisor *advisor.Advisor
	log     *slog.Logger
	apiKey  string
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, adv *advisor.Advisor, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:      db,
		advisor: adv,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(requestLogger(s.log))
	s.router.Use(corsHeaders)

	// Mutating methods need the key; reads ride on the tailnet.
	s.router.Group(func(r chi.Router) {
		r.Use(requireWriteKey(s.apiKey))
		r.Post("/api/v1/sessions", s.handleSaveSession)
		r.Post("/api/v1/templates", s.handleCreateTemplate)
		r.Get("/api/v1/templates", s.handleListTemplates)
		r.Get("/api/v1/templates/{id}", s.handleGetTemplate)
		r.Get("/api/v1/templates/{id}/suggestions", s.handleSuggestions)
		r.Get("/api/v1/templates/{id}/duration", s.handleDuration)
		r.Get("/api/v1/sessions", s.handleQuerySessions)
		r.Get("/api/v1/sessions/{id}", s.handleGetSession)
		r.Get("/api/v1/stats/volume", s.handleVolumeSummary)
	})
}

// Mount attaches an extra handler (for example the MCP transport)
// under the given pattern.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}
