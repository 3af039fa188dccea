package server

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claude/mapty/internal/app"
	"github.com/claude/mapty/internal/geo"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	app     *app.App
	browser *geo.Browser
	log     *slog.Logger
	router  chi.Router
}

// New creates a new Server with all routes configured. browser receives the
// front-end's position fix; it is nil when the map centre comes from config.
func New(a *app.App, browser *geo.Browser, log *slog.Logger) *Server {
	s := &Server{
		app:     a,
		browser: browser,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1/workouts", func(r chi.Router) {
		r.Get("/", s.handleListWorkouts)
		r.Post("/", s.handleCreateWorkout)
		r.Delete("/", s.handleRemoveAll)
		r.Get("/{id}", s.handleGetWorkout)
		r.Patch("/{id}", s.handleEditWorkout)
		r.Delete("/{id}", s.handleRemoveWorkout)
		r.Post("/{id}/zoom", s.handleZoom)
		r.Post("/{id}/edit", s.handleOpenEdit)
		r.Delete("/{id}/edit", s.handleCancelEdit)
	})

	s.router.Get("/api/v1/map", s.handleMap)
	s.router.Post("/api/v1/map/click", s.handleMapClick)
	s.router.Post("/api/v1/map/show-all", s.handleShowAll)
	s.router.Post("/api/v1/form/kind", s.handleSelectKind)
	s.router.Get("/api/v1/view", s.handleView)
	s.router.Post("/api/v1/view/sort", s.handleSort)
	s.router.Delete("/api/v1/view/warning", s.handleDismissWarning)
	s.router.Post("/api/v1/position", s.handlePosition)
	s.router.Post("/api/v1/reload", s.handleReload)
	s.router.Post("/api/v1/import", s.handleImport)
	s.router.Get("/api/v1/summary", s.handleSummary)

	s.router.Handle("/metrics", promhttp.Handler())
}

// SetFrontend mounts the SPA filesystem.
// Unmatched routes serve index.html for client-side routing.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the exact file first
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		// Fallback to index.html for SPA routing
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// Mount attaches h under pattern, e.g. the MCP endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}
