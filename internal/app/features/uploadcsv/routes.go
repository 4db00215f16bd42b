package uploadcsv

import (
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.HandleUpload)
	return r
}
