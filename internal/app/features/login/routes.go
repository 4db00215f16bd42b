package login

import "github.com/go-chi/chi/v5"

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/code", h.HandleCode)
	r.Post("/verify", h.HandleVerify)
	return r
}
