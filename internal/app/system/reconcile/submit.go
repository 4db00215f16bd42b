package reconcile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	"github.com/dalemusser/boirhub/internal/app/system/mailer"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmitCompanyByID marks a company submitted. It requires every required
// field answered and every populated group verified.
func (s *Service) SubmitCompanyByID(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Company, error) {
	c, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.AnswersCount != c.ReqFieldsCount {
		return nil, badRequest(nil, "company is incomplete: %d of %d required fields answered", c.AnswersCount, c.ReqFieldsCount)
	}

	form, owners, applicants, err := s.children(ctx, c)
	if err != nil {
		return nil, err
	}
	if pending := unverified(c, form, owners, applicants); len(pending) > 0 {
		return nil, badRequest(nil, "unverified sections: %s", strings.Join(pending, ", "))
	}

	now := time.Now().UTC()
	c.IsSubmitted = true
	c.SubmittedAt = &now
	if err := s.companies.Save(ctx, c); err != nil {
		return nil, err
	}

	s.metrics.Submitted()
	e := s.event(actor, c, audit.EventCompanySubmitted, nil)
	e.Category = audit.CategoryFiling
	s.record(ctx, e)
	s.notifyOwner(ctx, c, mailer.TemplateSubmitted, map[string]string{})
	return c, nil
}

// unverified lists the populated groups whose verification flag is unset,
// labelled "company.names", "owner 2.address" and so on.
func unverified(c *models.Company, form *models.CompanyForm, owners, applicants []models.Participant) []string {
	var out []string
	if form != nil {
		for _, g := range form.Unverified() {
			out = append(out, "company."+g)
		}
	}
	for i := range owners {
		for _, g := range owners[i].Unverified() {
			out = append(out, fmt.Sprintf("owner %d.%s", i+1, g))
		}
	}
	if c.ApplicantsRequired() {
		for i := range applicants {
			for _, g := range applicants[i].Unverified() {
				out = append(out, fmt.Sprintf("applicant %d.%s", i+1, g))
			}
		}
	}
	return out
}
