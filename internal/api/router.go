package api

import (
	"net/http"

	"github.com/foundryos/foundry/internal/hub"
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *hub.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Projects.
	r.Get("/projects", h.ListProjects)
	r.Get("/projects/{id}", h.GetProject)

	// Manifests.
	r.Post("/manifests", h.CreateManifest)

	// Empire rollups.
	r.Get("/status", h.Status)
	r.Post("/reload", h.Reload)
	r.Get("/diagnostics", h.Diagnostics)
	r.Get("/snapshots", h.ListSnapshots)

	// Pattern learning.
	r.Get("/patterns", h.ListPatterns)
	r.Get("/patterns/pending", h.ListPendingPatterns)
	r.Post("/patterns/pending/{type}", h.ResolvePattern)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
