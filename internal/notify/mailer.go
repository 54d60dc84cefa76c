// Package notify renders and sends unlock notifications. The delivery sweep
// hands it a destination and content; the transport is SMTP here but callers
// never depend on that.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/ghostpost/capsule-server/internal/logger"
	"github.com/ghostpost/capsule-server/internal/model"
)

var _ model.Notifier = (*Mailer)(nil)

// Mailer sends notifications over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
	logger *logger.Logger
}

// MailerConfig contains SMTP connection parameters.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewMailer creates an SMTP-backed notifier.
func NewMailer(cfg MailerConfig, logger *logger.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return &Mailer{
		client: client,
		from:   cfg.From,
		logger: logger,
	}, nil
}

// Send delivers one notification. A data-URI attachment is decoded and
// embedded inline; URL attachments are already referenced from the body.
func (m *Mailer) Send(ctx context.Context, n model.Notification) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(n.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextHTML, n.HTMLBody)

	if data, ok := decodeDataURI(n.Attachment); ok {
		if err := msg.EmbedReader(EmbedName, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("failed to embed attachment: %w", err)
		}
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.Info("notification sent", "subject", n.Subject)
	return nil
}

// decodeDataURI extracts the payload of a base64 data URI. Returns false for
// anything else, including plain URLs.
func decodeDataURI(ref string) ([]byte, bool) {
	if !strings.HasPrefix(strings.ToLower(ref), "data:") {
		return nil, false
	}
	meta, payload, found := strings.Cut(ref, ",")
	if !found || !strings.Contains(strings.ToLower(meta), ";base64") {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, false
	}
	return data, true
}
