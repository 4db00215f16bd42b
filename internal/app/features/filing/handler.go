// Package filing sends submitted, paid companies to FinCEN and reports the
// state of each filing.
package filing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	uierrors "github.com/dalemusser/boirhub/internal/app/features/errors"
	"github.com/dalemusser/boirhub/internal/app/features/shared"
	"github.com/dalemusser/boirhub/internal/app/store/audit"
	"github.com/dalemusser/boirhub/internal/app/system/auditlog"
	"github.com/dalemusser/boirhub/internal/app/system/blobstore"
	"github.com/dalemusser/boirhub/internal/app/system/boirxml"
	"github.com/dalemusser/boirhub/internal/app/system/fincen"
	"github.com/dalemusser/boirhub/internal/app/system/metrics"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// FinCEN is the BOIR filing API.
type FinCEN interface {
	RequestProcessID(ctx context.Context) (string, error)
	UploadAttachment(ctx context.Context, processID string, partyID int, fileName, contentType string, r io.Reader) error
	UploadXML(ctx context.Context, processID, fileName string, xml []byte) (*fincen.Status, error)
	Status(ctx context.Context, processID string) (*fincen.Status, error)
}

// BlobOpener reads stored document images.
type BlobOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type Handler struct {
	Svc      *reconcile.Service
	FinCEN   FinCEN
	Blobs    BlobOpener
	Metrics  *metrics.Metrics
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(svc *reconcile.Service, api FinCEN, blobs BlobOpener, m *metrics.Metrics, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:      svc,
		FinCEN:   api,
		Blobs:    blobs,
		Metrics:  m,
		AuditLog: audit,
		Log:      logger,
	}
}

type filingResponse struct {
	CompanyID primitive.ObjectID `json:"companyId"`
	Status    *fincen.Status     `json:"status"`
}

// HandleFile handles POST /companies/{id}/filing. It requests a process id,
// uploads every referenced document image, then the BOIR XML, and stores
// the status FinCEN returns. A rejected filing may be sent again.
func (h *Handler) HandleFile(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}
	id, err := shared.ObjectIDParam(r, "id")
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	c, err := h.Svc.ReadyToFile(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if c.ProcessID != "" && c.FilingStatus != fincen.StatusRejected {
		uierrors.Message(w, http.StatusConflict, "company has already been filed")
		return
	}

	f, err := h.Svc.Filing(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	root, err := boirxml.Build(*f)
	if err != nil {
		uierrors.Write(w, r, h.Log, fmt.Errorf("build BOIR xml: %w", err))
		return
	}
	doc, err := boirxml.Encode(root)
	if err != nil {
		uierrors.Write(w, r, h.Log, fmt.Errorf("encode BOIR xml: %w", err))
		return
	}

	pid, err := h.FinCEN.RequestProcessID(ctx)
	h.Metrics.FilingCall("process_id", err)
	h.AuditLog.Filing(ctx, r, actor.UserID, c.ID, audit.EventFilingRequested, pid, err)
	if err != nil {
		h.apiError(w, r, err)
		return
	}

	// Document image blobs are named uniquely, so the base name identifies
	// the key.
	keys := map[string]string{}
	for _, group := range [][]models.Participant{f.Owners, f.Applicants} {
		for i := range group {
			if k := group[i].DocImage(); k != "" {
				keys[path.Base(k)] = k
			}
		}
	}
	for _, att := range boirxml.Attachments(root) {
		err := h.uploadAttachment(ctx, pid, att, keys[att.FileName])
		h.Metrics.FilingCall("attachment", err)
		if err != nil {
			h.AuditLog.Filing(ctx, r, actor.UserID, c.ID, audit.EventFilingUploaded, pid, err)
			h.apiError(w, r, err)
			return
		}
	}

	status, err := h.FinCEN.UploadXML(ctx, pid, "boir-"+c.ID.Hex()+".xml", doc)
	h.Metrics.FilingCall("upload", err)
	h.AuditLog.Filing(ctx, r, actor.UserID, c.ID, audit.EventFilingUploaded, pid, err)
	if err != nil {
		h.apiError(w, r, err)
		return
	}

	if _, err := h.Svc.RecordFiling(ctx, actor, c.ID, pid, status.SubmissionStatus); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	h.Log.Info("company filed",
		zap.String("company_id", c.ID.Hex()),
		zap.String("process_id", pid),
		zap.String("status", status.SubmissionStatus))

	uierrors.JSON(w, http.StatusAccepted, filingResponse{CompanyID: c.ID, Status: status})
}

// ServeStatus handles GET /companies/{id}/filing. The status is fetched from
// FinCEN and stored when it changed.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.Svc.GetCompany(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if c.ProcessID == "" {
		uierrors.Message(w, http.StatusNotFound, "company has not been filed")
		return
	}

	status, err := h.FinCEN.Status(ctx, c.ProcessID)
	h.Metrics.FilingCall("status", err)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	if status.SubmissionStatus != c.FilingStatus {
		if _, err := h.Svc.RecordFiling(ctx, actor, c.ID, "", status.SubmissionStatus); err != nil {
			uierrors.Write(w, r, h.Log, err)
			return
		}
	}
	uierrors.JSON(w, http.StatusOK, filingResponse{CompanyID: c.ID, Status: status})
}

func (h *Handler) uploadAttachment(ctx context.Context, pid string, att boirxml.Attachment, key string) error {
	if key == "" {
		return fmt.Errorf("attachment %q has no stored image", att.FileName)
	}
	rc, err := h.Blobs.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open attachment %q: %w", att.FileName, err)
	}
	defer rc.Close()

	return h.FinCEN.UploadAttachment(ctx, pid, att.SeqNum, att.FileName, blobstore.ContentType(att.FileName), rc)
}

func (h *Handler) apiError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, fincen.ErrNotConfigured) {
		uierrors.Message(w, http.StatusServiceUnavailable, "filing is not available")
		return
	}
	var apiErr *fincen.APIError
	if errors.As(err, &apiErr) {
		h.Log.Warn("FinCEN call failed",
			zap.String("op", apiErr.Op),
			zap.Int("status", apiErr.Status),
			zap.String("body", apiErr.Body))
		uierrors.Message(w, http.StatusBadGateway, "FinCEN rejected the request")
		return
	}
	uierrors.Write(w, r, h.Log, err)
}
