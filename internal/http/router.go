package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/preston-bernstein/game-events-service/internal/http/handlers"
	"github.com/preston-bernstein/game-events-service/internal/http/middleware"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
)

// RouterConfig wires handlers into the router. Webhook routes are mounted
// only when both Webhooks and AdminToken are set.
type RouterConfig struct {
	Handler    *handlers.Handler
	Webhooks   *handlers.WebhookHandler
	AdminToken string
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

// NewRouter registers HTTP routes on a chi router.
func NewRouter(cfg RouterConfig) nethttp.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(func(next nethttp.Handler) nethttp.Handler {
		return middleware.LoggingMiddleware(cfg.Logger, cfg.Metrics, next)
	})
	r.NotFound(cfg.Handler.NotFound)
	r.MethodNotAllowed(cfg.Handler.MethodNotAllowed)

	r.Get("/health", cfg.Handler.Health)
	r.Get("/ready", cfg.Handler.Ready)
	r.Get("/games", cfg.Handler.Games)

	if cfg.Webhooks != nil && cfg.AdminToken != "" {
		r.Route("/webhooks", func(r chi.Router) {
			r.Use(middleware.BearerAuth(cfg.AdminToken, cfg.Logger))
			r.Get("/", cfg.Webhooks.List)
			r.Post("/", cfg.Webhooks.Create)
			r.Get("/{id}", cfg.Webhooks.Get)
			r.Post("/{id}/enable", cfg.Webhooks.Enable)
			r.Post("/{id}/disable", cfg.Webhooks.Disable)
		})
	}
	return r
}
