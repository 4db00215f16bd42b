// Package errors writes JSON error responses for the API.
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"go.uber.org/zap"
)

var statusByKind = []struct {
	kind   error
	status int
	msg    string
}{
	{reconcile.ErrNotFound, http.StatusNotFound, "not found"},
	{reconcile.ErrForbidden, http.StatusForbidden, "forbidden"},
	{reconcile.ErrConflict, http.StatusConflict, "conflict"},
	{reconcile.ErrBadRequest, http.StatusBadRequest, "bad request"},
}

// Status maps err to an HTTP status and a client-safe message. Errors outside
// the reconcile taxonomy become 500 with a generic message.
func Status(err error) (int, string) {
	for _, k := range statusByKind {
		if !stderrors.Is(err, k.kind) {
			continue
		}
		var re *reconcile.Error
		if stderrors.As(err, &re) && re.Msg != "" {
			return k.status, re.Msg
		}
		return k.status, k.msg
	}
	return http.StatusInternalServerError, "internal server error"
}

// Write sends err as {"message": ...}. Server errors are logged.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, msg := Status(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))
	}
	Message(w, status, msg)
}

// Handler serves the router's fallback responses.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler { return &Handler{} }

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	Message(w, http.StatusNotFound, "not found")
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Message(w, http.StatusMethodNotAllowed, "method not allowed")
}
