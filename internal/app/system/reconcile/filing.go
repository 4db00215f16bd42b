package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	"github.com/dalemusser/boirhub/internal/app/system/boirxml"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Filing returns the data for the company's XML report. The actor is the
// submitter.
func (s *Service) Filing(ctx context.Context, actor Actor, id primitive.ObjectID) (*boirxml.Filing, error) {
	c, err := s.loadCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	form, owners, applicants, err := s.children(ctx, c)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, notFound("company form")
	}

	f := &boirxml.Filing{
		Company:    *c,
		Form:       *form,
		Owners:     owners,
		Applicants: applicants,
		FiledAt:    time.Now().UTC(),
	}
	u, err := s.users.GetByID(ctx, actor.UserID)
	switch {
	case err == nil:
		f.Submitter = boirxml.Submitter{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, err
	}
	return f, nil
}

// ReadyToFile checks that a company may be sent to FinCEN: it must be
// submitted and paid.
func (s *Service) ReadyToFile(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Company, error) {
	c, err := s.loadCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !c.IsSubmitted {
		return nil, conflict(nil, "company %q has not been submitted", c.Name)
	}
	if !c.IsPaid {
		return nil, conflict(nil, "company %q has not been paid for", c.Name)
	}
	return c, nil
}

// RecordFiling stores the FinCEN process id and latest status.
func (s *Service) RecordFiling(ctx context.Context, actor Actor, id primitive.ObjectID, processID, status string) (*models.Company, error) {
	c, err := s.loadCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if processID != "" {
		c.ProcessID = processID
	}
	c.FilingStatus = status
	if err := s.companies.Save(ctx, c); err != nil {
		return nil, err
	}
	e := s.event(actor, c, audit.EventFilingStatus, map[string]string{"process_id": c.ProcessID, "status": status})
	e.Category = audit.CategoryFiling
	s.record(ctx, e)
	return c, nil
}

// AttachTransaction links a payment to a company and records whether it
// has been paid.
func (s *Service) AttachTransaction(ctx context.Context, actor Actor, id, txID primitive.ObjectID, paid bool) (*models.Company, error) {
	c, err := s.loadCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !c.HasTransaction(txID) {
		c.TransactionIDs = append(c.TransactionIDs, txID)
	}
	c.IsPaid = c.IsPaid || paid
	if err := s.companies.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
