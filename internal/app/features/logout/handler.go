package logout

import (
	"net/http"

	"github.com/dalemusser/boirhub/internal/app/system/auditlog"
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		AuditLog:   audit,
	}
}

// HandleLogout handles POST /auth/logout. Bearer tokens stay valid until
// they expire; clients drop them.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	if err := h.SessionMgr.Logout(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	if u != nil {
		h.AuditLog.Logout(r.Context(), r, u.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}
