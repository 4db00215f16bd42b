package reconcile

import (
	"context"
	"fmt"

	"github.com/dalemusser/boirhub/internal/app/system/completeness"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Section is the completeness of one document.
type Section struct {
	ID       primitive.ObjectID `json:"id,omitempty"`
	Answered int                `json:"answered"`
	Required int                `json:"required"`
	Percent  int                `json:"percent"`
	Missing  []string           `json:"missing"`
}

// Report is the completeness of a company and its participants.
type Report struct {
	AnswersCount   int       `json:"answers_count"`
	ReqFieldsCount int       `json:"req_fields_count"`
	Percent        int       `json:"percent"`
	Company        Section   `json:"company"`
	Owners         []Section `json:"owners"`
	Applicants     []Section `json:"applicants"`
	Unverified     []string  `json:"unverified"`
	Submittable    bool      `json:"submittable"`
}

// Completeness reports answered and missing required fields.
func (s *Service) Completeness(ctx context.Context, actor Actor, id primitive.ObjectID) (*Report, error) {
	c, err := s.loadCompany(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	form, owners, applicants, err := s.children(ctx, c)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		AnswersCount:   c.AnswersCount,
		ReqFieldsCount: c.ReqFieldsCount,
		Percent:        completeness.Percent(c.AnswersCount, c.ReqFieldsCount),
		Owners:         []Section{},
		Applicants:     []Section{},
		Unverified:     unverified(c, form, owners, applicants),
	}
	if rep.Unverified == nil {
		rep.Unverified = []string{}
	}

	if form == nil {
		form = &models.CompanyForm{}
	}
	rep.Company, err = section(form.ID, form, s.req.Company, form.AnswerCount)
	if err != nil {
		return nil, err
	}
	for i := range owners {
		sec, err := s.participantSection(models.KindOwner, &owners[i])
		if err != nil {
			return nil, err
		}
		rep.Owners = append(rep.Owners, sec)
	}
	if c.ApplicantsRequired() {
		for i := range applicants {
			sec, err := s.participantSection(models.KindApplicant, &applicants[i])
			if err != nil {
				return nil, err
			}
			rep.Applicants = append(rep.Applicants, sec)
		}
	}
	rep.Submittable = !c.IsSubmitted && c.AnswersCount == c.ReqFieldsCount && len(rep.Unverified) == 0
	return rep, nil
}

func (s *Service) participantSection(kind models.ParticipantKind, p *models.Participant) (Section, error) {
	paths := s.req.For(kind, p.IsExempt())
	if p.InFinCENMode() {
		return Section{ID: p.ID, Answered: len(paths), Required: len(paths), Percent: 100, Missing: []string{}}, nil
	}
	return section(p.ID, p, paths, p.AnswerCount)
}

func section(id primitive.ObjectID, v any, paths []string, answered int) (Section, error) {
	missing, err := completeness.MissingEntity(v, paths)
	if err != nil {
		return Section{}, fmt.Errorf("missing fields: %w", err)
	}
	if missing == nil {
		missing = []string{}
	}
	return Section{
		ID:       id,
		Answered: answered,
		Required: len(paths),
		Percent:  completeness.Percent(answered, len(paths)),
		Missing:  missing,
	}, nil
}
