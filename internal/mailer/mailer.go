package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer dispatches email through an external provider.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer logs instead of sending. Used when no provider key is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates the dev mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("email (not sent, no provider configured)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
