package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hhaamed74/promanager-api/internal/config"
	"github.com/hhaamed74/promanager-api/internal/handler"
	"github.com/hhaamed74/promanager-api/internal/metrics"
	"github.com/hhaamed74/promanager-api/internal/middleware"
	"github.com/hhaamed74/promanager-api/internal/storage"
)

// routerDeps carries everything setupRouter mounts.
type routerDeps struct {
	cfg    *config.Config
	logger *slog.Logger

	index    *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	auth     *handler.AuthHandler
	admin    *handler.AdminHandler
	projects *handler.ProjectHandler

	guard     middleware.Authenticator
	buckets   middleware.TokenBucket
	recorder  metrics.Recorder
	ipLimiter *middleware.IPRateLimiter

	// authMinDuration overrides the auth timing floor when positive.
	authMinDuration time.Duration

	// uploadDir is served at /uploads when set (local backend only).
	uploadDir string
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	if d.cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logger(d.logger))
	r.Use(middleware.Recoverer(d.logger))
	securityCfg := middleware.SecurityConfig{IsDevelopment: d.cfg.IsDevelopment()}
	if d.uploadDir != "" {
		securityCfg.PublicPrefixes = []string{storage.PublicPathPrefix}
	}
	r.Use(middleware.Security(securityCfg))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = d.cfg.GetCORSAllowedOrigins()
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(d.cfg.MaxRequestBodySize))

	// Health and metrics (no auth required)
	r.Get("/", d.index.Index)
	r.Get("/healthz", d.health.Healthz)
	r.Get("/readyz", d.health.Readyz)
	r.Get("/metrics", d.metrics.Metrics)

	if d.uploadDir != "" {
		files := http.StripPrefix(storage.PublicPathPrefix+"/", http.FileServer(storage.PublicFS(d.uploadDir)))
		r.Get(storage.PublicPathPrefix+"/*", files.ServeHTTP)
	}

	authenticate := middleware.Authenticate(middleware.AuthConfig{
		Logger:      d.logger,
		Guard:       d.guard,
		Metrics:     d.recorder,
		MinDuration: d.authMinDuration,
	})
	perPrincipal := middleware.RateLimitPrincipal(middleware.RateLimitConfig{
		Logger:            d.logger,
		Buckets:           d.buckets,
		Enabled:           d.cfg.RateLimitAPIEnabled,
		RequestsPerMinute: d.cfg.RateLimitAPIRPM,
		Burst:             d.cfg.RateLimitAPIBurst,
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Credential endpoints are throttled per client IP
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitIP(d.ipLimiter))
				r.Post("/register", d.auth.Register)
				r.Post("/login", d.auth.Login)
			})

			r.Group(func(r chi.Router) {
				r.Use(authenticate, perPrincipal)
				r.Get("/profile", d.auth.Profile)
				r.Put("/profile", d.auth.UpdateProfile)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin())
					r.Get("/users", d.admin.ListUsers)
					r.Put("/users/{id}/toggle", d.admin.ToggleUser)
					r.Delete("/users/{id}", d.admin.DeleteUser)
					r.Get("/stats", d.admin.Stats)
					r.Get("/activities", d.admin.Activities)
					r.Get("/activity-log", d.admin.ActivityLog)
				})
			})
		})

		// Ownership on update and delete is checked by the service
		r.Route("/projects", func(r chi.Router) {
			r.Use(authenticate, perPrincipal)
			r.Get("/", d.projects.List)
			r.Post("/", d.projects.Create)
			r.Get("/my-projects", d.projects.ListMine)
			r.Get("/stats/count", d.projects.Stats)
			r.Get("/{id}", d.projects.Get)
			r.Put("/{id}", d.projects.Update)
			r.Delete("/{id}", d.projects.Delete)
		})
	})

	r.NotFound(d.index.NotFound)
	r.MethodNotAllowed(d.index.MethodNotAllowed)

	return r
}
