package smtp

import (
	"context"
	"fmt"
	"time"

	"github.com/Gwishyman/emailotp/internal/config"
	"github.com/Gwishyman/emailotp/internal/domain"
	"github.com/wneessen/go-mail"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type mailer struct {
	client *mail.Client
	from   string
}

// NewMailer builds a mailer for the configured provider endpoint.
// cfg.SMTPSSL selects implicit TLS (port 465 style); otherwise STARTTLS is
// mandatory. Plaintext transport is never used.
func NewMailer(cfg *config.Config) (Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(30 * time.Second),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.SMTPUsername),
		mail.WithPassword(cfg.SMTPPassword),
	}
	if cfg.SMTPSSL {
		opts = append(opts, mail.WithSSLPort(false))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &mailer{client: client, from: cfg.SMTPFrom}, nil
}

func (m *mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from %s: %w", m.from, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to %s: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w: %w", to, domain.ErrDelivery, err)
	}
	return nil
}
