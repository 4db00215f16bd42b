// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (sign-in codes, login, logout).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Company controls logging for company, form and participant changes.
	Company string
	// Filing controls logging for submission, payment and FinCEN events.
	Filing string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.CompanyID != nil {
		fields = append(fields, zap.String("company_id", event.CompanyID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryCompany:
		s = l.config.Company
	case audit.CategoryFiling:
		s = l.config.Filing
	}
	if s == "" {
		return "all"
	}
	return s
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := l.setting(event.Category)
	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Authentication Events ---

// CodeSent logs that a sign-in code was emailed to a user.
func (l *Logger) CodeSent(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventCodeSent,
		UserID:    &userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// CodeFailed logs a rejected sign-in code. userID is nil when the email is unknown.
func (l *Logger) CodeFailed(ctx context.Context, r *http.Request, userID *primitive.ObjectID, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventCodeFailed,
		UserID:        userID,
		IP:            getClientIP(r),
		UserAgent:     r.UserAgent(),
		Success:       false,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	})
}

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    &userID,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}

// Logout logs a user logout.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID string) {
	var uid *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		uid = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    uid,
		IP:        getClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// --- Filing Events ---

// PaymentCreated logs a new payment intent covering companyIDs.
func (l *Logger) PaymentCreated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, companyID primitive.ObjectID, intentID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFiling,
		EventType: audit.EventPaymentCreated,
		ActorID:   &actorID,
		CompanyID: &companyID,
		IP:        getClientIP(r),
		Success:   true,
		Details:   map[string]string{"payment_intent_id": intentID},
	})
}

// PaymentUpdated logs a payment status change.
func (l *Logger) PaymentUpdated(ctx context.Context, r *http.Request, actorID primitive.ObjectID, intentID, status string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryFiling,
		EventType: audit.EventPaymentUpdated,
		ActorID:   &actorID,
		IP:        getClientIP(r),
		Success:   true,
		Details:   map[string]string{"payment_intent_id": intentID, "status": status},
	})
}

// Filing logs a FinCEN API step. err is nil on success.
func (l *Logger) Filing(ctx context.Context, r *http.Request, actorID, companyID primitive.ObjectID, eventType, processID string, err error) {
	e := audit.Event{
		Category:  audit.CategoryFiling,
		EventType: eventType,
		ActorID:   &actorID,
		CompanyID: &companyID,
		IP:        getClientIP(r),
		Success:   err == nil,
		Details:   map[string]string{"process_id": processID},
	}
	if err != nil {
		e.FailureReason = err.Error()
	}
	l.Log(ctx, e)
}
