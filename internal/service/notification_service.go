package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vibescript/builder/internal/events"
	"github.com/vibescript/builder/internal/mailer"
)

// NotificationService turns auth domain events into outbound email.
type NotificationService struct {
	dispatcher events.Dispatcher
	mail       mailer.Mailer
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, mail mailer.Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		mail:       mail,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventVerificationRequested, n.handleVerificationRequested)
	n.dispatcher.Subscribe(events.EventUserVerified, n.handleUserVerified)
}

func (n *NotificationService) handleVerificationRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.VerificationRequestedPayload)
	if !ok {
		return nil
	}

	err := n.mail.Send(ctx, mailer.Message{
		To:      payload.Email,
		Subject: "Verify your VibeScript account",
		HTML:    verificationEmailHTML(payload.VerifyURL),
	})
	if err != nil {
		// The stored token stays valid for its TTL; the resend path is the
		// recovery mechanism.
		n.logger.Error("verification email send failed",
			zap.String("to", payload.Email), zap.Error(err))
	}
	return err
}

func (n *NotificationService) handleUserVerified(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserVerifiedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("user verified", zap.String("email", payload.Email))
	return nil
}

func verificationEmailHTML(verifyURL string) string {
	return fmt.Sprintf(`<div style="font-family:system-ui,-apple-system,Segoe UI,Roboto,Arial">
  <h2>Confirm your email</h2>
  <p>Hi, please confirm your email for VibeScript:</p>
  <p><a href="%s" style="background:#10b981;color:#fff;padding:10px 14px;border-radius:8px;text-decoration:none">Confirm email</a></p>
  <p>Or paste this link in your browser:<br/>%s</p>
  <p>This link expires in 24 hours.</p>
</div>`, verifyURL, verifyURL)
}
