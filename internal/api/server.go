package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/mindoutline/internal/cache"
	"github.com/dgallion1/mindoutline/internal/config"
	"github.com/dgallion1/mindoutline/internal/pipeline"
	"github.com/dgallion1/mindoutline/internal/render"
	"github.com/dgallion1/mindoutline/internal/stats"
	"github.com/dgallion1/mindoutline/internal/vault"
	"github.com/dgallion1/mindoutline/internal/watch"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps are the services the API serves from.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Parser       *pipeline.DocumentParser
	Trees        *cache.Cache
	Stats        *stats.ParseStats
	Vault        *vault.Vault
	Watches      *watch.Manager
}

// Server is the HTTP API server for mindoutline.
type Server struct {
	router   chi.Router
	deps     Deps
	renderer *render.Renderer
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps:     deps,
		renderer: render.New(),
		log:      log,
		cfg:      cfg,
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
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/outline", s.handleOutline)
		r.Post("/api/outline/layout", s.handleOutlineLayout)
		r.Post("/api/outline/links", s.handleOutlineLinks)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/*", s.handleGetDocument)
		r.Get("/api/links/*", s.handleDocumentLinks)

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/stats/parse", s.handleParseStats)

		r.Get("/ws/documents/*", s.handleDocumentWS)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
