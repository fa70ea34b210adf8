package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/facewatch/internal/web/handlers"
	"github.com/kozaktomas/facewatch/internal/web/middleware"
)

// requestTimeout bounds plain API calls; the websocket route is exempt.
const requestTimeout = 30 * time.Second

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config)
	sessionHandler := handlers.NewSessionHandler(s.session, s.logger)
	rosterHandler := handlers.NewRosterHandler(s.roster)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/overlay/ws", s.hub.ServeWS)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(requestTimeout))

			r.Get("/health", handlers.HealthCheck)
			r.Get("/config", configHandler.Get)
			r.Get("/camera", sessionHandler.Status)
			r.Get("/stats", sessionHandler.Stats)
			r.Get("/overlay", sessionHandler.Overlay)
			r.Get("/roster", rosterHandler.List)
			r.Get("/roster/{id}", rosterHandler.Get)

			// Operator actions
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireToken(s.config.Web.OperatorToken))
				r.Post("/camera/start", sessionHandler.Start)
				r.Post("/camera/stop", sessionHandler.Stop)
				r.Post("/scan", sessionHandler.Scan)
			})
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
}
