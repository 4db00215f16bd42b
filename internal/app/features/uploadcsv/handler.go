// Package uploadcsv imports companies in bulk from CSV or XLSX files.
package uploadcsv

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/boirhub/internal/app/features/errors"
	"github.com/dalemusser/boirhub/internal/app/features/shared"
	"github.com/dalemusser/boirhub/internal/app/system/csvimport"
	"github.com/dalemusser/boirhub/internal/app/system/limits"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler provides HTTP handlers for bulk upload.
type Handler struct {
	Svc *reconcile.Service
	Log *zap.Logger
}

func NewHandler(svc *reconcile.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

// HandleUpload handles POST /companies/upload. The file is the "file" part
// of a multipart form. Once the file parses, the reply is 200 with a
// per-row report, even when every row was rejected.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxImportUpload)
	if err := r.ParseMultipartForm(limits.MaxImportUpload); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			uierrors.Message(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		uierrors.Message(w, http.StatusBadRequest, "expected a multipart upload")
		return
	}
	file, fh, err := r.FormFile("file")
	if err != nil {
		uierrors.Message(w, http.StatusBadRequest, `upload needs a "file" part`)
		return
	}
	defer file.Close()

	rows, err := csvimport.Read(fh.Filename, file)
	if err != nil {
		h.Log.Info("bulk upload unreadable", zap.String("file", fh.Filename), zap.Error(err))
		uierrors.Message(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	rep := h.Svc.ImportRows(ctx, actor, rows)
	h.Log.Info("bulk upload processed",
		zap.String("user_id", actor.UserID.Hex()),
		zap.String("file", fh.Filename),
		zap.Int("rows", len(rows)),
		zap.Int("created", rep.Created),
		zap.Int("changed", rep.Changed),
		zap.Int("rejected", rep.Rejected))

	uierrors.JSON(w, http.StatusOK, rep)
}
