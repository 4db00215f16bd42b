package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/boirhub/internal/app/system/limits"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes {"message": msg} with status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Bind decodes a JSON body of at most limits.MaxJSONBody into v and runs its
// validate tags. Failures are reconcile bad-request errors, ready for Write.
func Bind(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if stderrors.As(err, &tooBig) {
			return &reconcile.Error{Kind: reconcile.ErrBadRequest, Msg: "request body too large", Err: err}
		}
		return &reconcile.Error{Kind: reconcile.ErrBadRequest, Msg: "invalid JSON body", Err: err}
	}
	if err := validate.Struct(v); err != nil {
		var ves validator.ValidationErrors
		if stderrors.As(err, &ves) && len(ves) > 0 {
			msg := fmt.Sprintf("%s failed %s", ves[0].Field(), ves[0].Tag())
			return &reconcile.Error{Kind: reconcile.ErrBadRequest, Msg: msg, Err: err}
		}
		return &reconcile.Error{Kind: reconcile.ErrBadRequest, Msg: "invalid request", Err: err}
	}
	return nil
}
