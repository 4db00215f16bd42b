package payments

import (
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// CompanyRoutes mounts under /companies/{id}/payments.
func CompanyRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Post("/", h.HandleCreate)
	return r
}

// TransactionRoutes mounts under /transactions.
func TransactionRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeTransaction)
	return r
}
