package health

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/boirhub/internal/app/features/errors"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client  *mongo.Client
	Storage string // blob backend name, "local" or "s3"
	Filing  bool   // FinCEN credentials are set
	Log     *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(client *mongo.Client, storage string, filing bool, logger *zap.Logger) *Handler {
	return &Handler{
		Client:  client,
		Storage: storage,
		Filing:  filing,
		Log:     logger,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage,omitempty"`
	Filing   string `json:"filing"`
	Message  string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "storage":"s3", "filing":"enabled" }
//
// On DB failure: 503 with status "error" and database "disconnected".
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Storage:  h.Storage,
		Filing:   "disabled",
	}
	if h.Filing {
		resp.Filing = "enabled"
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "database unavailable"
		uierrors.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	uierrors.JSON(w, http.StatusOK, resp)
}
