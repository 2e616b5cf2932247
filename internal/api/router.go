// Package api wires the HTTP surface of the audit engine.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/karalisweb/leadaudit/internal/api/handlers"
	"github.com/karalisweb/leadaudit/internal/api/middleware"
	"github.com/karalisweb/leadaudit/internal/observability"
	"github.com/karalisweb/leadaudit/internal/repository/postgres"
	rediscache "github.com/karalisweb/leadaudit/internal/repository/redis"
	"github.com/karalisweb/leadaudit/internal/services/audit"
	"github.com/karalisweb/leadaudit/internal/storage"
	"github.com/karalisweb/leadaudit/pkg/httputil"
)

// Router holds the HTTP router and its dependencies
type Router struct {
	chi.Router
	logger *zap.Logger
}

// RouterConfig contains configuration for the router
type RouterConfig struct {
	Repos      *postgres.Repositories
	Cache      *rediscache.Cache
	Auditor    *audit.Auditor
	Snapshots  *storage.SnapshotArchive
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	EnableCORS bool
	RateLimit  int
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Handler)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.HTTPMiddleware)
	}

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if cfg.Cache != nil && cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimitMiddleware(cfg.Cache, cfg.RateLimit, true).Handler)
	}

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(cfg.Repos, cfg.Cache))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		leadHandler := handlers.NewLeadHandler(cfg.Repos.Leads, cfg.Logger)
		auditHandler := handlers.NewAuditHandler(cfg.Auditor, cfg.Repos.Leads, cfg.Cache, cfg.Logger)
		snapshotHandler := handlers.NewSnapshotHandler(cfg.Snapshots, cfg.Logger)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", leadHandler.List)
			r.Post("/", leadHandler.Create)
			r.Get("/stages", leadHandler.StageCounts)
			r.Get("/auditable", leadHandler.Auditable)
			r.Get("/{id}", leadHandler.Get)
			r.Delete("/{id}", leadHandler.Delete)
			r.Put("/{id}/stage", leadHandler.UpdateStage)
			r.Post("/{id}/verify", leadHandler.Verify)
			r.Get("/{id}/talking-points", leadHandler.TalkingPoints)

			// Audits run synchronously under their own crawl budget.
			r.Post("/{id}/audit", auditHandler.Trigger)
			r.Post("/{id}/audit/stream", auditHandler.Stream)

			r.Get("/{id}/snapshots", snapshotHandler.List)
			r.Get("/{id}/snapshots/content", snapshotHandler.Content)
			r.Get("/{id}/snapshots/link", snapshotHandler.Link)
			r.Delete("/{id}/snapshots", snapshotHandler.Delete)
		})
	})

	return &Router{
		Router: r,
		logger: cfg.Logger,
	}
}

// healthHandler returns basic health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "leadaudit-api",
	})
}

// readyHandler checks if all dependencies are ready
func readyHandler(repos *postgres.Repositories, cache *rediscache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string)
		allHealthy := true

		if repos != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := repos.Health(ctx); err != nil {
				checks["database"] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				checks["database"] = "healthy"
			}
		}

		if cache != nil {
			if err := cache.Health(r.Context()); err != nil {
				checks["redis"] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				checks["redis"] = "healthy"
			}
		} else {
			checks["redis"] = "not configured"
		}

		status := http.StatusOK
		statusText := "ready"
		if !allHealthy {
			status = http.StatusServiceUnavailable
			statusText = "not ready"
		}

		httputil.JSON(w, status, map[string]any{
			"status": statusText,
			"checks": checks,
		})
	}
}
