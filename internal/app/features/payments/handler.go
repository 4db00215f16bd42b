// Package payments takes payment for company filings and tracks the
// resulting transactions.
package payments

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/boirhub/internal/app/features/errors"
	"github.com/dalemusser/boirhub/internal/app/features/shared"
	"github.com/dalemusser/boirhub/internal/app/system/auditlog"
	"github.com/dalemusser/boirhub/internal/app/system/payment"
	"github.com/dalemusser/boirhub/internal/app/system/reconcile"
	"github.com/dalemusser/boirhub/internal/app/system/timeouts"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// TxStore persists transactions.
type TxStore interface {
	Create(ctx context.Context, t models.Transaction) (models.Transaction, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Transaction, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
}

// Payer marks companies paid once their transaction succeeds.
type Payer interface {
	MarkPaid(ctx context.Context, ids []primitive.ObjectID, txID primitive.ObjectID) error
}

// Provider is the card payment provider.
type Provider interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error)
	GetIntent(ctx context.Context, id string) (*payment.Intent, error)
}

// Price is what one filing costs, in the currency's minor unit.
type Price struct {
	Amount   int64
	Currency string
}

type Handler struct {
	Svc       *reconcile.Service
	Tx        TxStore
	Companies Payer
	Provider  Provider
	Price     Price
	AuditLog  *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(svc *reconcile.Service, tx TxStore, companies Payer, provider Provider, price Price, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:       svc,
		Tx:        tx,
		Companies: companies,
		Provider:  provider,
		Price:     price,
		AuditLog:  audit,
		Log:       logger,
	}
}

// HandleCreate handles POST /companies/{id}/payments. It opens a payment
// intent for one filing and returns the transaction with the client secret
// the browser confirms the card payment with.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
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

	c, err := h.Svc.GetCompany(ctx, actor, id)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if c.IsPaid {
		uierrors.Message(w, http.StatusConflict, "company has already been paid for")
		return
	}

	intent, err := h.Provider.CreateIntent(ctx, h.Price.Amount, h.Price.Currency, map[string]string{
		"company_id": c.ID.Hex(),
		"user_id":    actor.UserID.Hex(),
	})
	if err != nil {
		h.providerError(w, r, "create payment intent", err)
		return
	}

	tx, err := h.Tx.Create(ctx, models.Transaction{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Status:          txStatus(intent.Status),
		CompanyIDs:      []primitive.ObjectID{c.ID},
		UserID:          actor.UserID,
	})
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if _, err := h.Svc.AttachTransaction(ctx, actor, c.ID, tx.ID, tx.Status == models.TxSucceeded); err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	h.AuditLog.PaymentCreated(ctx, r, actor.UserID, c.ID, intent.ID)

	uierrors.JSON(w, http.StatusCreated, tx)
}

// ServeTransaction handles GET /transactions/{id}. A pending transaction is
// refreshed from the provider first; success marks its companies paid.
func (h *Handler) ServeTransaction(w http.ResponseWriter, r *http.Request) {
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

	tx, err := h.Tx.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.Message(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	if !actor.IsAdmin() && tx.UserID != actor.UserID {
		uierrors.Message(w, http.StatusForbidden, "forbidden")
		return
	}

	if tx.Status == models.TxPending {
		if err := h.refresh(ctx, r, actor, tx); err != nil {
			h.providerError(w, r, "refresh payment intent", err)
			return
		}
	}
	tx.ClientSecret = ""
	uierrors.JSON(w, http.StatusOK, tx)
}

// ServeList handles GET /transactions: the actor's own transactions.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Tx.ListByUser(ctx, actor.UserID, 100)
	if err != nil {
		uierrors.Write(w, r, h.Log, err)
		return
	}
	for i := range list {
		list[i].ClientSecret = ""
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{"transactions": list})
}

func (h *Handler) refresh(ctx context.Context, r *http.Request, actor reconcile.Actor, tx *models.Transaction) error {
	intent, err := h.Provider.GetIntent(ctx, tx.PaymentIntentID)
	if err != nil {
		return err
	}
	status := txStatus(intent.Status)
	if status == tx.Status {
		return nil
	}
	if err := h.Tx.SetStatus(ctx, tx.ID, status); err != nil {
		return err
	}
	tx.Status = status
	if status == models.TxSucceeded {
		if err := h.Companies.MarkPaid(ctx, tx.CompanyIDs, tx.ID); err != nil {
			return err
		}
		h.Log.Info("payment succeeded",
			zap.String("transaction_id", tx.ID.Hex()),
			zap.Int("companies", len(tx.CompanyIDs)))
	}
	h.AuditLog.PaymentUpdated(ctx, r, actor.UserID, tx.PaymentIntentID, status)
	return nil
}

func (h *Handler) providerError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, payment.ErrNotConfigured) {
		uierrors.Message(w, http.StatusServiceUnavailable, "payments are not available")
		return
	}
	var apiErr *payment.APIError
	if errors.As(err, &apiErr) {
		h.Log.Warn(op+" rejected", zap.Int("status", apiErr.Status), zap.String("message", apiErr.Message))
		uierrors.Message(w, http.StatusBadGateway, "payment provider error")
		return
	}
	uierrors.Write(w, r, h.Log, err)
}

// txStatus maps a provider intent status to a transaction status. States
// still waiting on the customer stay pending.
func txStatus(s string) string {
	switch s {
	case "succeeded":
		return models.TxSucceeded
	case "canceled":
		return models.TxCanceled
	}
	return models.TxPending
}
