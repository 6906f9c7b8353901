// Package v1handler implements the v1 JSON API: persisted checks, batches and
// the allowlist, all scoped to the authenticated user.
package v1handler

import (
	"net/http"
	"sitecheck/internal/checker"
	"sitecheck/pkg/allowlist"

	"github.com/go-chi/chi/v5"
)

// Deps are the services the v1 handlers delegate to.
type Deps struct {
	Checker   checker.Checker
	Allowlist *allowlist.List
}

// Handler serves the authenticated v1 routes.
type Handler struct {
	deps Deps
}

// New returns a Handler backed by deps.
func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Routes returns the v1 router. Every route requires a valid bearer token.
func (h *Handler) Routes(sec *SecHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(sec.Middleware)

	r.Route("/checks", func(r chi.Router) {
		r.Post("/", h.CreateCheck)
		r.Get("/", h.ListChecks)
		r.Get("/{id}", h.GetCheck)
		r.Delete("/{id}", h.DeleteCheck)
	})
	r.Post("/batches", h.CreateBatch)
	r.Get("/batches/{id}", h.GetBatch)
	r.Get("/allowlist", h.GetAllowlist)

	return r
}
