package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/khata/internal/adapter/http/handler"
	"github.com/iho/khata/internal/adapter/http/middleware"
	"github.com/iho/khata/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	PartyHandler      *handler.PartyHandler
	EntryHandler      *handler.EntryHandler
	LoanHandler       *handler.LoanHandler
	CalculatorHandler *handler.CalculatorHandler
	// AttachmentHandler is optional; uploads are not routed without it.
	AttachmentHandler *handler.AttachmentHandler
	HealthHandler     *handler.HealthHandler

	Authenticator    *middleware.Authenticator
	IdempotencyStore middleware.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	authn := cfg.Authenticator
	if authn == nil {
		authn = middleware.NewAuthenticator(nil, "")
	}
	canCreate := middleware.RequireRole(middleware.CanCreate)
	canDelete := middleware.RequireRole(middleware.CanDelete)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authn.Authenticate)

		// Idempotency keys are scoped per shop, so this runs after auth.
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		// Parties
		r.Route("/parties", func(r chi.Router) {
			r.With(canCreate).Post("/", cfg.PartyHandler.Create)
			r.Get("/", cfg.PartyHandler.List)
			r.Get("/{id}", cfg.PartyHandler.Get)
			r.With(canDelete).Delete("/{id}", cfg.PartyHandler.Delete)
			r.Get("/{id}/statement", cfg.EntryHandler.Statement)
			r.With(canCreate).Post("/{id}/entries", cfg.EntryHandler.Create)
		})

		// Entries
		r.Route("/entries", func(r chi.Router) {
			r.Get("/{id}", cfg.EntryHandler.Get)
			r.With(canDelete).Delete("/{id}", cfg.EntryHandler.Delete)
		})

		if cfg.AttachmentHandler != nil {
			r.With(canCreate).Post("/attachments", cfg.AttachmentHandler.Upload)
		}

		r.Get("/entity-types/{type}/labels", cfg.PartyHandler.Labels)

		// Loans
		r.Route("/loans", func(r chi.Router) {
			r.With(canCreate).Post("/", cfg.LoanHandler.Create)
			r.Get("/", cfg.LoanHandler.List)
			r.Get("/{id}", cfg.LoanHandler.Get)
			r.Get("/{id}/schedule", cfg.LoanHandler.Schedule)
			r.Get("/{id}/reminder", cfg.LoanHandler.Reminder)
			r.With(canCreate).Post("/{id}/payments", cfg.LoanHandler.RecordPayment)
			r.With(canDelete).Post("/{id}/close", cfg.LoanHandler.Close)
		})

		// Calculators only compute, so every role may use them.
		r.Route("/calculators", func(r chi.Router) {
			r.Post("/emi", cfg.CalculatorHandler.EMI)
			r.Post("/interest", cfg.CalculatorHandler.Interest)
		})
	})

	return r
}
