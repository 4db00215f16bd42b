// Package companies serves company, company form and completeness endpoints.
package companies

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/boirhub/internal/app/features/errors"
	"github.com/dalemusser/boirhub/internal/app/features/shared"
	"github.com/dalemusser/boirhub/internal/app/system/boirxml"
	"github.com/dalemusser/boirhub/internal/app/system/formmerge"
	"github.com/dalemusser/boirhub/internal/app/system/paging"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type Handler struct {
	Svc *reconcile.Service
	Log *zap.Logger
}

func NewHandler(svc *reconcile.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type listResponse struct {
	Companies []models.Company `json:"companies"`
	Page      paging.Result    `json:"page"`
}

// ServeList handles GET /companies. Users see their own companies; admins
// see all. ?search= matches the start of the company name.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	page := paging.Parse(r)
	search := strings.TrimSpace(query.Get(r, "search"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Svc.ListCompanies(ctx, actor, search, page.FetchLimit(), page.Offset)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	rows, res := paging.Trim(rows, page)
	if rows == nil {
		rows = []models.Company{}
	}
	uierrors.JSON(w, http.StatusOK, listResponse{Companies: rows, Page: res})
}

// HandleCreate handles POST /companies.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	var in reconcile.CompanyInput
	if err := uierrors.Bind(w, r, &in); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	c, err := h.Svc.CreateCompany(ctx, actor, in)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusCreated, c)
}

// ServeDetail handles GET /companies/{id}: the company with its form and
// participants.
func (h *Handler) ServeDetail(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	d, err := h.Svc.GetDetail(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, d)
}

// HandleUpdate handles PATCH /companies/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	var upd reconcile.CompanyUpdate
	if err := uierrors.Bind(w, r, &upd); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	c, err := h.Svc.UpdateCompany(ctx, actor, id, upd)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, c)
}

// HandleDelete handles DELETE /companies/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	if err := h.Svc.DeleteCompany(ctx, actor, id); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePatchForm handles PATCH /companies/{id}/form. Only the groups
// present in the body are merged.
func (h *Handler) HandlePatchForm(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	var p formmerge.CompanyFormPatch
	if err := uierrors.Bind(w, r, &p); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	f, err := h.Svc.PatchCompanyForm(ctx, actor, id, p)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, f)
}

// ServeCompleteness handles GET /companies/{id}/completeness.
func (h *Handler) ServeCompleteness(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rep, err := h.Svc.Completeness(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, rep)
}

// HandleSubmit handles POST /companies/{id}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	c, err := h.Svc.SubmitCompanyByID(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("company submitted", zap.String("company_id", c.ID.Hex()))
	uierrors.JSON(w, http.StatusOK, c)
}

// ServeXML handles GET /companies/{id}/xml: the BOIR document for a
// submitted company, as a download.
func (h *Handler) ServeXML(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	f, err := h.Svc.Filing(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if !f.Company.IsSubmitted {
		uierrors.Message(w, http.StatusConflict, "company has not been submitted")
		return
	}
	doc, err := boirxml.Marshal(*f)
	if err != nil {
		uierrors.Write(w, r, h.Log, fmt.Errorf("render BOIR xml: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="boir-%s.xml"`, id.Hex()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// HandleAddParticipant returns the POST handler that adds a participant of
// kind to the company in the URL.
func (h *Handler) HandleAddParticipant(kind models.ParticipantKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := shared.Actor(w, r)
		if !ok {
			return
		}
		id, err := shared.ObjectIDParam(r, "id")
		if err != nil {
			uierrors.Write(w, r, h.Log, err)
			return
		}
		var p formmerge.ParticipantPatch
		if err := uierrors.Bind(w, r, &p); err != nil {
			uierrors.Write(w, r, h.Log, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
		defer cancel()

		created, err := h.Svc.AddParticipant(ctx, actor, id, kind, p)
		if err != nil {
			uierrors.Write(w, r, h.Log, err)
			return
		}
		uierrors.JSON(w, http.StatusCreated, created)
	}
}
