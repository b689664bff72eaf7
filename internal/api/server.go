// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wildtrace/wildtrace-go/internal/core"
)

// Server holds the dependencies for our API.
type Server struct {
	app *core.App
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{app: app}
}

// App returns the underlying application, mainly for tests.
func (s *Server) App() *core.App {
	return s.app
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/version", s.handleGetVersion)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)

		r.Route("/api/investigations", func(r chi.Router) {
			r.Post("/{investigationID}/track", s.handleTrackInvestigation)
			r.Post("/untrack", s.handleUntrackInvestigation)
			r.Get("/{investigationID}/progress", s.handleGetProgress)
			r.Get("/{investigationID}/subagents/{subagentID}", s.handleGetSubagent)
			r.Get("/{investigationID}/ensemble", s.handleGetEnsemble)
		})
	})

	// WebSocket route for live progress updates
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub.ServeWs(w, r)
	})

	return r
}
