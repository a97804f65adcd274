package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/lexgest/internal/answer"
	"github.com/dgallion1/lexgest/internal/config"
	"github.com/dgallion1/lexgest/internal/generate"
	"github.com/dgallion1/lexgest/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for lexgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	chat         *answer.Router
	stats        *generate.LLMStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. chat may be nil, in
// which case /api/chat answers 503.
func NewServer(orch *pipeline.Orchestrator, chat *answer.Router, stats *generate.LLMStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		chat:         chat,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/structure", s.handleStructure)
		r.Get("/api/chunks", s.handleChunks)
		r.Post("/api/segment", s.handleSegment)
		r.Post("/api/reindex", s.handleReindex)

		r.Post("/api/chat", s.handleChat)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
