package filing

import (
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /companies/{id}/filing.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.HandleFile)
	r.Get("/", h.ServeStatus)
	return r
}
