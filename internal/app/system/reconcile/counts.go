package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// children loads a company's form and participants. A missing form yields
// nil; missing participants are skipped.
func (s *Service) children(ctx context.Context, c *models.Company) (*models.CompanyForm, []models.Participant, []models.Participant, error) {
	var form *models.CompanyForm
	if !c.FormID.IsZero() {
		f, err := s.forms.GetByID(ctx, c.FormID)
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
		case err != nil:
			return nil, nil, nil, fmt.Errorf("load form: %w", err)
		default:
			form = f
		}
	}
	owners, err := s.owners.GetMany(ctx, c.OwnerIDs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load owners: %w", err)
	}
	applicants, err := s.applicants.GetMany(ctx, c.ApplicantIDs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load applicants: %w", err)
	}
	return form, owners, applicants, nil
}

// recount recomputes the company counters from its stored children and
// saves the company.
func (s *Service) recount(ctx context.Context, c *models.Company) error {
	form, owners, applicants, err := s.children(ctx, c)
	if err != nil {
		return err
	}
	t := s.req.Totals(c, form, owners, applicants)
	c.AnswersCount = t.Answers
	c.ReqFieldsCount = t.Required
	if err := s.companies.Save(ctx, c); err != nil {
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

func (s *Service) countParticipant(kind models.ParticipantKind, p *models.Participant) {
	p.AnswerCount = s.req.Participant(kind, p)
}

func (s *Service) countForm(f *models.CompanyForm) {
	f.AnswerCount = s.req.Form(f)
}
