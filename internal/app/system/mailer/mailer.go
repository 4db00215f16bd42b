// Package mailer builds and sends notification email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// ErrUnknownTemplate is returned by Send for a template name it does not know.
var ErrUnknownTemplate = errors.New("unknown mail template")

// Email is a rendered message.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config configures the SMTP connection. An empty Host disables delivery:
// messages are logged instead of sent, which is what local development uses.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	SiteName string
	// TLS requires STARTTLS. Without it TLS is used when the server offers it.
	TLS bool
}

// Mailer sends email through one SMTP server.
type Mailer struct {
	cfg    Config
	log    *zap.Logger
	client *mail.Client
}

// New creates a Mailer. The SMTP connection is opened per message.
func New(cfg Config, logger *zap.Logger) (*Mailer, error) {
	if cfg.SiteName == "" {
		cfg.SiteName = "BOIR Hub"
	}
	m := &Mailer{cfg: cfg, log: logger}
	if cfg.Host == "" {
		logger.Warn("SMTP host not configured; email will be logged, not sent")
		return m, nil
	}

	policy := mail.TLSOpportunistic
	if cfg.TLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{mail.WithTLSPolicy(policy)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

// Deliver sends a rendered message.
func (m *Mailer) Deliver(ctx context.Context, e Email) error {
	if m.client == nil {
		m.log.Info("email (not sent)",
			zap.String("to", e.To),
			zap.String("subject", e.Subject),
			zap.String("body", e.TextBody))
		return nil
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(e.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(mail.TypeTextPlain, e.TextBody)
	if e.HTMLBody != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, e.HTMLBody)
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Send renders the named template with data and delivers it to to.
func (m *Mailer) Send(ctx context.Context, template, to string, data map[string]string) error {
	e, err := m.Build(template, data)
	if err != nil {
		return err
	}
	e.To = to
	return m.Deliver(ctx, e)
}

// Build renders a template by name. Keys in data match the template's
// data struct fields in snake case.
func (m *Mailer) Build(template string, data map[string]string) (Email, error) {
	notice := NoticeData{
		SiteName:    m.cfg.SiteName,
		Name:        data["name"],
		Company:     data["company"],
		Participant: data["participant"],
		Kind:        data["kind"],
	}
	switch template {
	case TemplateSignInCode:
		return BuildSignInCodeEmail(SignInCodeData{
			SiteName:  m.cfg.SiteName,
			Code:      data["code"],
			ExpiresIn: data["expires_in"],
		}), nil
	case TemplateImageRemoved:
		return BuildImageRemovedEmail(notice), nil
	case TemplateSubmitted:
		return BuildSubmittedEmail(notice), nil
	}
	return Email{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
}
