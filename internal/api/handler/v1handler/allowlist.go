package v1handler

import (
	"net/http"

	"github.com/go-chi/render"
)

// Allowlist lists the trusted root domains.
type Allowlist struct {
	Domains []string `json:"domains"`
}

func (h Handler) GetAllowlist(w http.ResponseWriter, r *http.Request) {
	domains := h.deps.Allowlist.Domains()
	if domains == nil {
		domains = []string{}
	}

	render.JSON(w, r, Allowlist{Domains: domains})
}
