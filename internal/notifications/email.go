package notifications

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/docbook-ai/pkg/logging"
)

const defaultFromName = "DocBook"

// EmailSender mirrors notifications to a patient's inbox.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a plain-text email.
type EmailMessage struct {
	To      string
	Subject string
	Body    string
}

// SenderConfig identifies the From address of mirrored emails.
type SenderConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendgridResponse, error)
}

// sendgridResponse keeps the fields of rest.Response the sender inspects.
type sendgridResponse struct {
	StatusCode int
	Body       string
}

type sendgridAdapter struct {
	client *sendgrid.Client
}

func (a sendgridAdapter) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*sendgridResponse, error) {
	resp, err := a.client.SendWithContext(ctx, email)
	if err != nil {
		return nil, err
	}
	return &sendgridResponse{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

// SendGridSender sends notification emails through the SendGrid API.
type SendGridSender struct {
	client    sendgridClient
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SenderConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	return newSendGridSender(sendgridAdapter{client: sendgrid.NewSendClient(cfg.APIKey)}, cfg, logger)
}

func newSendGridSender(client sendgridClient, cfg SenderConfig, logger *logging.Logger) *SendGridSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{client: client, fromEmail: cfg.FromEmail, fromName: cfg.FromName, logger: logger}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notifications: sendgrid client not configured")
	}
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail("", msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, "")

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notifications: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Error("sendgrid rejected email", "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("notifications: sendgrid returned status %d", resp.StatusCode)
	}
	s.logger.Debug("notification email sent", "provider", "sendgrid", "subject", msg.Subject)
	return nil
}

// StubEmailSender logs instead of sending.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send email", "subject", msg.Subject)
	return nil
}
