package participants

import (
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeParticipant)
		r.Patch("/", h.HandlePatch)
		r.Delete("/", h.HandleDelete)
		r.Put("/image", h.HandlePutImage)
		r.Get("/image", h.ServeImage)
		r.Delete("/image", h.HandleDeleteImage)
	})
	return r
}
