// Package api wires the HTTP surface: the inbound webhook, the job
// listing, the live WebSocket feed, and the optional static UI.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/firefly-classifier/internal/api/handlers"
	"github.com/dvloznov/firefly-classifier/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// RouterConfig bundles the dependencies of the HTTP layer.
type RouterConfig struct {
	Webhook *handlers.WebhookHandler
	Jobs    *handlers.JobsHandler
	Feed    *handlers.FeedHandler

	// EnableUI serves the static UI from UIDir at the root path.
	EnableUI bool
	UIDir    string

	Log zerolog.Logger
}

// NewRouter builds the service router with the standard middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.RequestID)

	r.Post("/webhook", cfg.Webhook.Handle)
	r.Get("/api/jobs", cfg.Jobs.List)
	r.Get("/ws", cfg.Feed.Serve)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if cfg.EnableUI {
		dir := cfg.UIDir
		if dir == "" {
			dir = "public"
		}
		r.Handle("/*", http.FileServer(http.Dir(dir)))
	}

	return r
}
