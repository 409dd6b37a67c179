package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"learningdash-backend/internal/handlers"
	"learningdash-backend/internal/middleware"
	"learningdash-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	assetHandler *handlers.AssetHandler,
	sourcesHandler *handlers.SourcesHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Submission rate limiter (60 req/min per IP)
	submitLimiter := middleware.NewRateLimiter(60, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/sources", sourcesHandler.List)

		r.Route("/assets", func(r chi.Router) {
			if jwtAuth != nil {
				r.Use(jwtAuth.Middleware)
			}
			r.With(submitLimiter.Middleware).Post("/", assetHandler.Create)
			r.Get("/", assetHandler.List)
			r.Get("/{id}", assetHandler.Get)
			r.Post("/{id}/cancel", assetHandler.Cancel)
		})

		r.Route("/jobs", func(r chi.Router) {
			if jwtAuth != nil {
				r.Use(jwtAuth.Middleware)
			}
			r.Get("/{id}", assetHandler.GetJob)
		})

		if wsHub != nil {
			r.Get("/ws", wsHub.HandleWebSocket)
		}
	})

	return r
}
