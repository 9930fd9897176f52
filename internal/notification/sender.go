// Package notification dispatches outbound email and SMS through the
// configured providers. Dispatch is fire-and-forget from the engine's point
// of view; the engine records the attempt regardless of downstream delivery.
package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lumabook/automation/pkg/integration/brevo"
	"github.com/lumabook/automation/pkg/integration/twilio"
)

// Sender is the message-sending capability consumed by the engine's message
// executor.
type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

// Service sends email via Brevo and SMS via Twilio.
type Service struct {
	email  *brevo.Client
	sms    *twilio.Client
	logger *slog.Logger
}

// NewService creates a sender backed by the given provider clients. Either
// client may be nil, in which case sends on that channel fail.
func NewService(email *brevo.Client, sms *twilio.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		email:  email,
		sms:    sms,
		logger: logger.With(slog.String("component", "notification")),
	}
}

// SendEmail sends a plain-text transactional email.
func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	if s.email == nil {
		return ErrChannelUnconfigured
	}

	messageID, err := s.email.SendTransactionalEmail(ctx, &brevo.TransactionalEmail{
		To:          []brevo.EmailAddress{{Email: to}},
		Subject:     subject,
		TextContent: body,
	})
	if err != nil {
		s.logger.Warn("email send failed", slog.String("to", to), slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("email sent", slog.String("to", to), slog.String("message_id", messageID))
	return nil
}

// SendSMS sends a text message.
func (s *Service) SendSMS(ctx context.Context, to, body string) error {
	if s.sms == nil {
		return ErrChannelUnconfigured
	}

	sid, err := s.sms.SendMessage(ctx, to, body)
	if err != nil {
		s.logger.Warn("sms send failed", slog.String("to", to), slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("sms sent", slog.String("to", to), slog.String("sid", sid))
	return nil
}

// RecordingSender captures sends in memory. Used by tests and by the dry-run
// sweep command.
type RecordingSender struct {
	mu     sync.Mutex
	Emails []RecordedEmail
	SMS    []RecordedSMS

	// FailEmail / FailSMS, when set, are returned from the corresponding
	// send calls.
	FailEmail error
	FailSMS   error
}

// RecordedEmail is one captured email send.
type RecordedEmail struct {
	To      string
	Subject string
	Body    string
}

// RecordedSMS is one captured SMS send.
type RecordedSMS struct {
	To   string
	Body string
}

// NewRecordingSender creates an empty recording sender.
func NewRecordingSender() *RecordingSender {
	return &RecordingSender{}
}

func (r *RecordingSender) SendEmail(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailEmail != nil {
		return r.FailEmail
	}
	r.Emails = append(r.Emails, RecordedEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (r *RecordingSender) SendSMS(_ context.Context, to, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailSMS != nil {
		return r.FailSMS
	}
	r.SMS = append(r.SMS, RecordedSMS{To: to, Body: body})
	return nil
}

// SentEmails returns a snapshot of the captured emails.
func (r *RecordingSender) SentEmails() []RecordedEmail {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedEmail, len(r.Emails))
	copy(out, r.Emails)
	return out
}

// SentSMS returns a snapshot of the captured SMS messages.
func (r *RecordingSender) SentSMS() []RecordedSMS {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecordedSMS, len(r.SMS))
	copy(out, r.SMS)
	return out
}
