package hubserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the chi.Router for the hub's entire HTTP surface,
// following the teacher's httpapi.Server.Routes shape: chi's own
// RequestID/RealIP/Logger/Recoverer stack, this package's
// CorrelationMiddleware, then an unauthenticated health group followed by
// a TenantResolver-gated group for everything else.
func (h *MCPHandler) Routes(resolver TenantResolver, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)
	r.Get("/health.json", h.HandleHealthJSON)
	r.Get("/ready", h.HandleReady)

	r.Group(func(r chi.Router) {
		r.Use(ResolveTenantMiddleware(resolver))
		r.Use(limiter.Middleware)

		r.Post("/mcp", h.ServeHTTP)
		r.Post("/ai-message", h.HandleAIMessagePost)
		r.Get("/ai-messages/{agentId}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleAIMessagesGet(w, r, chi.URLParam(r, "agentId"))
		})
		r.Get("/system/status", h.HandleSystemStatus)
		r.Get("/ws", h.HandleWebSocket)
	})

	return r
}
