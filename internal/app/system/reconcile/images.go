package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dalemusser/boirhub/internal/app/store/audit"
	"github.com/dalemusser/boirhub/internal/app/system/mailer"
	"github.com/dalemusser/boirhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ImageContentTypes lists the accepted document image types.
var ImageContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// SetDocumentImage uploads a document image for a participant and replaces
// any previous one. The old blob is deleted after the participant is saved;
// a failed delete is logged.
func (s *Service) SetDocumentImage(ctx context.Context, actor Actor, kind models.ParticipantKind, id primitive.ObjectID, contentType string, r io.Reader) (*models.Participant, error) {
	if s.blobs == nil {
		return nil, errors.New("blob storage is not configured")
	}
	ext, ok := ImageContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return nil, badRequest(nil, "unsupported image type %q", contentType)
	}
	p, c, err := s.loadParticipant(ctx, actor, kind, id)
	if err != nil {
		return nil, err
	}
	if c.IsSubmitted {
		return nil, conflict(nil, "company %q has already been submitted", c.Name)
	}
	if p.InFinCENMode() {
		return nil, badRequest(nil, "a %s identified by FinCEN ID has no document image", kind)
	}

	name := path.Join("companies", c.ID.Hex(), string(kind), id.Hex(), uuid.NewString()+ext)
	key, err := s.blobs.Upload(ctx, name, r, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	old := p.DocImage()
	next := *p
	details := models.IdentificationDetails{}
	if p.IdentificationDetails != nil {
		details = *p.IdentificationDetails
	}
	details.DocImg = key
	details.IsVerified = false
	next.IdentificationDetails = &details
	s.countParticipant(kind, &next)

	if err := s.participants(kind).Save(ctx, &next); err != nil {
		s.deleteBlob(ctx, key)
		return nil, err
	}
	s.deleteBlob(ctx, old)
	if err := s.recount(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, s.event(actor, c, audit.EventDocumentImageSet, map[string]string{
		"kind": string(kind), "participant_id": id.Hex(),
	}))
	return &next, nil
}

// DeleteDocumentImage removes a participant's document image and notifies
// the company's user. The notification is best effort.
func (s *Service) DeleteDocumentImage(ctx context.Context, actor Actor, kind models.ParticipantKind, id primitive.ObjectID) (*models.Participant, error) {
	p, c, err := s.loadParticipant(ctx, actor, kind, id)
	if err != nil {
		return nil, err
	}
	if c.IsSubmitted {
		return nil, conflict(nil, "company %q has already been submitted", c.Name)
	}
	old := p.DocImage()
	if old == "" {
		return nil, notFound("document image")
	}

	next := *p
	details := *p.IdentificationDetails
	details.DocImg = ""
	details.IsVerified = false
	next.IdentificationDetails = &details
	if details == (models.IdentificationDetails{}) {
		next.IdentificationDetails = nil
	}
	s.countParticipant(kind, &next)

	if err := s.participants(kind).Save(ctx, &next); err != nil {
		return nil, err
	}
	s.deleteBlob(ctx, old)
	if err := s.recount(ctx, c); err != nil {
		return nil, err
	}

	s.notifyImageRemoved(ctx, c, &next, kind)
	s.record(ctx, s.event(actor, c, audit.EventDocumentImageDel, map[string]string{
		"kind": string(kind), "participant_id": id.Hex(),
	}))
	return &next, nil
}

// OpenDocumentImage streams a participant's document image. The caller
// closes the reader.
func (s *Service) OpenDocumentImage(ctx context.Context, actor Actor, kind models.ParticipantKind, id primitive.ObjectID) (io.ReadCloser, string, error) {
	if s.blobs == nil {
		return nil, "", errors.New("blob storage is not configured")
	}
	p, _, err := s.loadParticipant(ctx, actor, kind, id)
	if err != nil {
		return nil, "", err
	}
	key := p.DocImage()
	if key == "" {
		return nil, "", notFound("document image")
	}
	rc, err := s.blobs.Open(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	return rc, key, nil
}

func (s *Service) notifyImageRemoved(ctx context.Context, c *models.Company, p *models.Participant, kind models.ParticipantKind) {
	s.notifyOwner(ctx, c, mailer.TemplateImageRemoved, map[string]string{
		"participant": strings.TrimSpace(participantName(p)),
		"kind":        string(kind),
	})
}

// notifyOwner mails the company's user. Failures are logged.
func (s *Service) notifyOwner(ctx context.Context, c *models.Company, template string, data map[string]string) {
	if s.mail == nil {
		return
	}
	u, err := s.users.GetByID(ctx, c.UserID)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			s.log.Warn("notice: load user", zap.String("template", template), zap.Error(err))
		}
		return
	}
	data["name"] = u.FullName()
	data["company"] = c.Name
	if err := s.mail.Send(ctx, template, u.Email, data); err != nil {
		s.log.Warn("notice not sent",
			zap.String("template", template),
			zap.String("company_id", c.ID.Hex()),
			zap.Error(err))
	}
}

func participantName(p *models.Participant) string {
	if p.PersonalInfo == nil {
		return ""
	}
	return p.PersonalInfo.FirstName + " " + p.PersonalInfo.LastName
}
