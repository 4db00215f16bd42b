package reconcile

import (
	"context"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	"github.com/dalemusser/boirhub/internal/app/system/formmerge"
	"github.com/dalemusser/boirhub/internal/app/system/normalize"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddParticipant creates an owner or applicant for a company.
func (s *Service) AddParticipant(ctx context.Context, actor Actor, companyID primitive.ObjectID, kind models.ParticipantKind, p formmerge.ParticipantPatch) (*models.Participant, error) {
	if !kind.Valid() {
		return nil, badRequest(nil, "unknown participant kind %q", kind)
	}
	c, err := s.loadEditable(ctx, actor, companyID)
	if err != nil {
		return nil, err
	}
	if kind == models.KindApplicant && !c.ApplicantsRequired() {
		return nil, badRequest(nil, "applicants are not reported for existing companies or foreign pooled investment vehicles")
	}
	if kind == models.KindOwner && c.IsForeignPooled && len(c.OwnerIDs) > 0 {
		return nil, badRequest(nil, "a foreign pooled investment vehicle reports one owner")
	}

	np, err := formmerge.NewParticipant(kind, p)
	if err != nil {
		return nil, badRequest(err, "%v", err)
	}
	if vs := s.validate.Participant(&np); len(vs) > 0 {
		return nil, badRequest(vs, "invalid %s: %s", kind, vs.Error())
	}

	if err := s.checkUnique(ctx, c, kind, &np); err != nil {
		return nil, err
	}

	store := s.participants(kind)
	np.CompanyID = c.ID
	s.countParticipant(kind, &np)
	created, err := store.Create(ctx, np)
	if err != nil {
		return nil, err
	}
	c.SetParticipantIDs(kind, append(c.ParticipantIDs(kind), created.ID))
	if err := s.recount(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, s.event(actor, c, audit.EventParticipantAdded, map[string]string{
		"kind": string(kind), "participant_id": created.ID.Hex(),
	}))
	return &created, nil
}

// GetParticipant returns a participant the actor may see.
func (s *Service) GetParticipant(ctx context.Context, actor Actor, kind models.ParticipantKind, id primitive.ObjectID) (*models.Participant, error) {
	p, _, err := s.loadParticipant(ctx, actor, kind, id)
	return p, err
}

// PatchParticipant merges p into a stored participant.
func (s *Service) PatchParticipant(ctx context.Context, actor Actor, kind models.ParticipantKind, id primitive.ObjectID, p formmerge.ParticipantPatch) (*models.Participant, error) {
	cur, c, err := s.loadParticipant(ctx, actor, kind, id)
	if err != nil {
		return nil, err
	}
	if c.IsSubmitted {
		return nil, conflict(nil, "company %q has already been submitted", c.Name)
	}

	next := *cur
	if err := formmerge.ApplyParticipant(&next, kind, p); err != nil {
		return nil, badRequest(err, "%v", err)
	}
	if vs := s.validate.Participant(&next); len(vs) > 0 {
		return nil, badRequest(vs, "invalid %s: %s", kind, vs.Error())
	}
	if err := s.checkUnique(ctx, c, kind, &next); err != nil {
		return nil, err
	}
	s.countParticipant(kind, &next)
	if err := s.participants(kind).Save(ctx, &next); err != nil {
		return nil, err
	}
	// Switching to a FinCEN ID drops the stored image.
	if old := cur.DocImage(); old != "" && next.DocImage() != old {
		s.deleteBlob(ctx, old)
	}
	if err := s.recount(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, s.event(actor, c, audit.EventParticipantUpdated, map[string]string{
		"kind": string(kind), "participant_id": id.Hex(),
	}))
	return &next, nil
}

// DeleteParticipant removes a participant, detaches it from its company
// and recounts.
func (s *Service) DeleteParticipant(ctx context.Context, actor Actor, kind models.ParticipantKind, id primitive.ObjectID) error {
	p, c, err := s.loadParticipant(ctx, actor, kind, id)
	if err != nil {
		return err
	}
	if c.IsSubmitted {
		return conflict(nil, "company %q has already been submitted", c.Name)
	}
	if err := s.participants(kind).Delete(ctx, id); err != nil {
		return err
	}
	s.deleteBlob(ctx, p.DocImage())

	c.SetParticipantIDs(kind, models.RemoveID(c.ParticipantIDs(kind), id))
	if err := s.recount(ctx, c); err != nil {
		return err
	}

	s.record(ctx, s.event(actor, c, audit.EventParticipantDeleted, map[string]string{
		"kind": string(kind), "participant_id": id.Hex(),
	}))
	return nil
}

// checkUnique answers Conflict when another participant of the same kind on
// c already carries p's identity. p itself is skipped by ID.
func (s *Service) checkUnique(ctx context.Context, c *models.Company, kind models.ParticipantKind, p *models.Participant) error {
	key := identityKey(kind, p)
	if key == "" {
		return nil
	}
	existing, err := s.participants(kind).GetMany(ctx, c.ParticipantIDs(kind))
	if err != nil {
		return err
	}
	for i := range existing {
		if existing[i].ID == p.ID {
			continue
		}
		if identityKey(kind, &existing[i]) == key {
			return conflict(nil, "this %s is already on the company", kind)
		}
	}
	return nil
}

// identityKey identifies a participant within a company: FinCEN ID first,
// then an exempt entity's name, then document type and number. It returns
// "" when the participant carries none of these.
func identityKey(kind models.ParticipantKind, p *models.Participant) string {
	if id := p.FinCENIDValue(); id != "" {
		return "fincen:" + id
	}
	if kind == models.KindOwner && p.IsExempt() {
		if name := text.Fold(p.LastName()); name != "" {
			return "exempt:" + name
		}
	}
	if typ, num := p.Document(); typ != "" && num != "" {
		return "doc:" + typ + ":" + normalize.Identifier(num)
	}
	return ""
}
