// Package login signs users in with a one-time code sent by email.
package login

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	uierrors "github.com/dalemusser/boirhub/internal/app/features/errors"
	"github.com/dalemusser/boirhub/internal/app/system/auditlog"
	"github.com/dalemusser/boirhub/internal/app/system/auth"
	"github.com/dalemusser/boirhub/internal/app/system/mailer"
	"github.com/dalemusser/boirhub/internal/app/system/ratelimit"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// UserStore is the slice of the user store sign-in needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u models.User) (models.User, error)
	SetOTP(ctx context.Context, id primitive.ObjectID, hash string, expiresAt time.Time) error
	IncrementOTPAttempts(ctx context.Context, id primitive.ObjectID) (int, error)
	ClearOTP(ctx context.Context, id primitive.ObjectID) error
}

// Mailer sends templated mail.
type Mailer interface {
	Send(ctx context.Context, template, to string, data map[string]string) error
}

type Handler struct {
	Users      UserStore
	Mailer     Mailer
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.CodeLimiter
	AuditLog   *auditlog.Logger
	Log        *zap.Logger

	now func() time.Time
}

func NewHandler(users UserStore, m Mailer, sm *auth.SessionManager, limiter *ratelimit.CodeLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:      users,
		Mailer:     m,
		SessionMgr: sm,
		Limiter:    limiter,
		AuditLog:   audit,
		Log:        logger,
		now:        time.Now,
	}
}

type codeRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

type verifyResponse struct {
	User      *auth.SessionUser `json:"user"`
	Token     string            `json:"token,omitempty"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

const msgBadCode = "invalid or expired code"

// HandleCode handles POST /auth/code. The reply is the same whether or not
// the address already had an account; unknown addresses get one.
func (h *Handler) HandleCode(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := uierrors.Bind(w, r, &req); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, email); !ok {
			uierrors.Message(w, http.StatusTooManyRequests, msg)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		created, cerr := h.Users.Create(ctx, models.User{Email: email})
		if cerr != nil {
			h.Log.Error("create user for sign-in failed", zap.Error(cerr), zap.String("email", email))
			uierrors.Write(w, r, h.Log, cerr)
			return
		}
		u, err = &created, nil
		h.Log.Info("user created on first sign-in", zap.String("user_id", u.ID.Hex()))
	}
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}

	code, err := auth.GenerateCode()
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	hash, err := auth.HashCode(code)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if err := h.Users.SetOTP(ctx, u.ID, hash, h.now().Add(auth.CodeTTL)); err != nil {
		h.Log.Error("store sign-in code failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		uierrors.Write(w, r, h.Log, err)
		return
	}

	data := map[string]string{"code": code, "expires_in": formatExpiry(auth.CodeTTL)}
	if err := h.Mailer.Send(ctx, mailer.TemplateSignInCode, u.Email, data); err != nil {
		h.Log.Error("send sign-in code failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		uierrors.Write(w, r, h.Log, err)
		return
	}
	h.AuditLog.CodeSent(ctx, r, u.ID)

	uierrors.Message(w, http.StatusAccepted, "code sent")
}

// HandleVerify handles POST /auth/verify. A correct code signs the user in
// with a session cookie and, when tokens are enabled, a bearer token.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := uierrors.Bind(w, r, &req); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.CodeFailed(ctx, r, nil, email, "unknown email")
		uierrors.Message(w, http.StatusUnauthorized, msgBadCode)
		return
	}
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if u.OTP == nil || h.now().After(u.OTP.ExpiresAt) {
		h.AuditLog.CodeFailed(ctx, r, &u.ID, email, "no active code")
		uierrors.Message(w, http.StatusUnauthorized, msgBadCode)
		return
	}

	attempts, err := h.Users.IncrementOTPAttempts(ctx, u.ID)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if attempts > auth.MaxCodeAttempts {
		if err := h.Users.ClearOTP(ctx, u.ID); err != nil {
			h.Log.Warn("clear exhausted code failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		}
		h.AuditLog.CodeFailed(ctx, r, &u.ID, email, "too many attempts")
		uierrors.Message(w, http.StatusTooManyRequests, "too many incorrect codes; request a new one")
		return
	}
	if !auth.CheckCode(u.OTP.Hash, req.Code) {
		h.AuditLog.CodeFailed(ctx, r, &u.ID, email, "wrong code")
		uierrors.Message(w, http.StatusUnauthorized, msgBadCode)
		return
	}

	if err := h.Users.ClearOTP(ctx, u.ID); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}

	su := &auth.SessionUser{ID: u.ID.Hex(), Name: u.FullName(), Email: u.Email, Role: u.Role}
	if err := h.SessionMgr.Login(w, r, su); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", su.ID))
		uierrors.Write(w, r, h.Log, err)
		return
	}
	resp := verifyResponse{User: su}
	if tokens := h.SessionMgr.Tokens(); tokens != nil {
		tok, exp, err := tokens.Issue(su)
		if err != nil {
			uierrors.Write(w, r, h.Log, err)
			return
		}
		resp.Token, resp.ExpiresAt = tok, &exp
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, email)
	h.Log.Info("user signed in", zap.String("user_id", su.ID))

	uierrors.JSON(w, http.StatusOK, resp)
}

// formatExpiry renders d as "10 minutes" or "1 hour".
func formatExpiry(d time.Duration) string {
	minutes := int(d.Minutes())
	switch {
	case minutes == 1:
		return "1 minute"
	case minutes < 60:
		return strconv.Itoa(minutes) + " minutes"
	case minutes < 120:
		return "1 hour"
	}
	return strconv.Itoa(minutes/60) + " hours"
}
