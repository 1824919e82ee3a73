// Package server exposes the HTTP API: asset catalog, price-table range
// reads, user transactions, user lifecycle hooks and manual refresh.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rickgao/pricetables/internal/auth"
	"github.com/rickgao/pricetables/internal/catalog"
	"github.com/rickgao/pricetables/internal/docstore"
	"github.com/rickgao/pricetables/internal/metrics"
	"github.com/rickgao/pricetables/internal/refresh"
	"github.com/rickgao/pricetables/internal/users"
	"github.com/rickgao/pricetables/internal/version"
	"github.com/rickgao/pricetables/internal/writer"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Deps holds the components the API serves.
type Deps struct {
	Store     docstore.Store
	Catalog   *catalog.Reader
	Snapshots *writer.SnapshotWriter
	Users     *users.Service
	Refresh   refresh.Runner
	AdminKey  *auth.AdminKey
}

// Server routes HTTP requests to handlers.
type Server struct {
	deps   Deps
	logger *slog.Logger
	router chi.Router
}

// New creates a Server.
func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		deps:   deps,
		logger: logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	requireUser := auth.RequireUser(deny)
	requireAdmin := s.deps.AdminKey.Require(deny)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/asset-table", s.handleGetAssetTable)
			r.Get("/price-tables", s.handleListPriceTables)
			r.Get("/transactions", s.handleGetTransactions)
			r.Post("/transactions", s.handleAddTransactions)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Put("/asset-table", s.handlePutAssetTable)
			r.Post("/users/{uid}", s.handleCreateUser)
			r.Delete("/users/{uid}", s.handleDeleteUser)
			r.Post("/refresh", s.handleRefresh)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, KindNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: ErrorDetail{
			Kind:    KindInvalidArgument,
			Message: "method not allowed",
		}})
	})

	return r
}

// lastResulter is implemented by runners that remember their last run.
type lastResulter interface {
	LastResult() (refresh.Result, bool)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Version    string         `json:"version"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Version:    version.Version,
		Components: make(map[string]any),
	}

	// Check document store
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		health.Status = "unhealthy"
		health.Components["store"] = map[string]string{
			"status": "disconnected",
			"error":  err.Error(),
		}
	} else {
		health.Components["store"] = "connected"
	}

	// Last refresh run
	if lr, ok := s.deps.Refresh.(lastResulter); ok {
		if res, ok := lr.LastResult(); ok {
			last := map[string]any{
				"key":   res.Key,
				"state": res.State,
			}
			if res.Err != nil {
				last["error"] = res.Err.Error()
				health.Status = "degraded"
			}
			health.Components["last_refresh"] = last
		}
	}

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}
