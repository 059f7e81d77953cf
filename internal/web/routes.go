package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/classroll/internal/web/handlers"
	"github.com/kozaktomas/classroll/internal/web/middleware"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	authHandler := handlers.NewAuthHandler(s.config, sessionManager)
	attendanceHandler := handlers.NewAttendanceHandler()
	statsHandler := handlers.NewStatsHandler(s.services.Roster, s.config.Engine.Location())
	timetableHandler := handlers.NewTimetableHandler()
	engineHandler := handlers.NewEngineHandler(s.services.Engine, s.services.Monitor, statsHandler.InvalidateCache)
	galleryHandler := handlers.NewGalleryHandler(s.services.Loader, s.services.Gallery)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			// Live engine state
			r.Get("/status", engineHandler.Status)
			r.Get("/slot/current", engineHandler.Current)
			r.Post("/sweep", engineHandler.Sweep)

			// Ledger
			r.Get("/attendance", attendanceHandler.List)
			r.Get("/stats", statsHandler.Get)
			r.Get("/report", statsHandler.Report)
			r.Get("/report/{name}", statsHandler.Student)

			// Timetable
			r.Get("/timetable", timetableHandler.Get)
			r.Post("/timetable", timetableHandler.Upload)

			// Face gallery
			r.Get("/gallery", galleryHandler.Get)
			r.Post("/gallery/reload", galleryHandler.Reload)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})
}
