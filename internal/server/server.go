// Package server exposes the pipeline over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/einkauf-app/einkauf/internal/apperr"
	"github.com/einkauf-app/einkauf/internal/auth"
	"github.com/einkauf-app/einkauf/internal/budget"
	"github.com/einkauf-app/einkauf/internal/ledger"
	"github.com/einkauf-app/einkauf/internal/pipeline"
)

// Server wires the HTTP surface to the pipeline and its collaborators.
type Server struct {
	pipeline *pipeline.Pipeline
	ledger   *ledger.Ledger
	guard    *budget.Guard
	auth     *auth.Service
	timeout  time.Duration
}

// New creates a Server. timeout bounds each inbound request; zero selects
// 30 seconds.
func New(p *pipeline.Pipeline, l *ledger.Ledger, g *budget.Guard, a *auth.Service, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{pipeline: p, ledger: l, guard: g, auth: a, timeout: timeout}
}

// Router builds the chi router with the public and authenticated routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/join", s.handleJoin)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/me", s.handleMe)
		r.Post("/recipe/ingredients", s.handleExtractIngredients)
		r.Post("/ingredient/seek", s.handleSeekItem)
		r.Post("/ingredient/select", s.handleSelectAlternative)
		r.Post("/ingredient/pieces", s.handleSetPieces)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	writeJSON(w, kind.HTTPStatus(), map[string]string{"error": apperr.MessageOf(err)})
}
