package companies

import (
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.ServeDetail)
		r.Patch("/", h.HandleUpdate)
		r.Delete("/", h.HandleDelete)
		r.Patch("/form", h.HandlePatchForm)
		r.Get("/completeness", h.ServeCompleteness)
		r.Post("/submit", h.HandleSubmit)
		r.Get("/xml", h.ServeXML)
		r.Post("/owners", h.HandleAddParticipant(models.KindOwner))
		r.Post("/applicants", h.HandleAddParticipant(models.KindApplicant))
	})
	return r
}
