package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"planforge/internal/di"
)

// NewRouter assembles the HTTP surface over the container
func NewRouter(container *di.Container) http.Handler {
	handlers := NewHandlers(container)

	r := chi.NewRouter()
	r.Use(correlationMiddleware)
	r.Use(requestLogger(container.Logger))
	r.Use(corsMiddleware(container.Config.Server.CORSOrigins))

	// Health and stats stay unauthenticated for probes
	r.Get("/health", handlers.handleHealth)
	r.Get("/stats", handlers.handleStats)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(&container.Config.Server))

		r.Route("/ai", func(r chi.Router) {
			r.Post("/commands", handlers.handleCommand)
			r.Post("/layouts", handlers.handleLayout)
			r.Get("/commands/{id}", handlers.handleGetCommand)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", handlers.handleUploadDocument)
			r.Get("/", handlers.handleListDocuments)
			r.Delete("/{id}", handlers.handleDeleteDocument)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", handlers.handleCreateProject)
			r.Post("/{id}/execute", handlers.handleExecuteProject)
			r.Post("/{id}/steps/{stepID}/retry", handlers.handleRetryStep)
			r.Get("/{id}/status", handlers.handleProjectStatus)
		})
	})

	return r
}
