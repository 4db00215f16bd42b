// Package participants serves beneficial owner and company applicant forms
// and their document images.
package participants

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	uierrors "github.com/dalemusser/boirhub/internal/app/features/errors"
	"github.com/dalemusser/boirhub/internal/app/features/shared"
	"github.com/dalemusser/boirhub/internal/app/system/blobstore"
	"github.com/dalemusser/boirhub/internal/app/system/formmerge"
	"github.com/dalemusser/boirhub/internal/app/system/limits"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves one participant kind; mount one per kind.
type Handler struct {
	Svc  *reconcile.Service
	Kind models.ParticipantKind
	Log  *zap.Logger
}

func NewHandler(svc *reconcile.Service, kind models.ParticipantKind, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Kind: kind, Log: logger}
}

// ServeParticipant handles GET /{kind}/{id}.
func (h *Handler) ServeParticipant(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Svc.GetParticipant(ctx, actor, h.Kind, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, p)
}

// HandlePatch handles PATCH /{kind}/{id}.
func (h *Handler) HandlePatch(w http.ResponseWriter, r *http.Request) {
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

	updated, err := h.Svc.PatchParticipant(ctx, actor, h.Kind, id, p)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, updated)
}

// HandleDelete handles DELETE /{kind}/{id}.
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

	if err := h.Svc.DeleteParticipant(ctx, actor, h.Kind, id); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePutImage handles PUT /{kind}/{id}/image. The image is either the raw
// body, typed by Content-Type, or the "file" part of a multipart form.
func (h *Handler) HandlePutImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxImageUpload)

	body, contentType, err := imageBody(r)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	defer body.Close()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	p, err := h.Svc.SetDocumentImage(ctx, actor, h.Kind, id, contentType, body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			uierrors.Message(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, p)
}

// ServeImage handles GET /{kind}/{id}/image.
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
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

	rc, key, err := h.Svc.OpenDocumentImage(ctx, actor, h.Kind, id)
	if errors.Is(err, blobstore.ErrNotFound) {
		h.Log.Warn("document image missing from storage", zap.String("participant_id", id.Hex()))
		uierrors.Message(w, http.StatusNotFound, "document image not found")
		return
	}
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", blobstore.ContentType(key))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Log.Warn("stream document image", zap.Error(err), zap.String("participant_id", id.Hex()))
	}
}

// HandleDeleteImage handles DELETE /{kind}/{id}/image.
func (h *Handler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
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

	p, err := h.Svc.DeleteDocumentImage(ctx, actor, h.Kind, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	uierrors.JSON(w, http.StatusOK, p)
}

// imageBody returns the uploaded image and its media type.
func imageBody(r *http.Request) (io.ReadCloser, string, error) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", &reconcile.Error{Kind: reconcile.ErrBadRequest, Msg: "missing or invalid Content-Type", Err: err}
	}
	if mt != "multipart/form-data" {
		return r.Body, mt, nil
	}

	if err := r.ParseMultipartForm(limits.MaxImageUpload); err != nil {
		return nil, "", &reconcile.Error{Kind: reconcile.ErrBadRequest, Msg: "invalid multipart upload", Err: err}
	}
	f, fh, err := r.FormFile("file")
	if err != nil {
		return nil, "", &reconcile.Error{Kind: reconcile.ErrBadRequest, Msg: `multipart upload needs a "file" part`, Err: err}
	}
	ct, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if ct == "" || ct == "application/octet-stream" {
		ct = blobstore.ContentType(fh.Filename)
	}
	return f, ct, nil
}
