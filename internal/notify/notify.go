// Package notify delivers e-mail on behalf of the task manager: the welcome
// message after registration and the due-date reminders.
//
// Delivery is best effort. Callers log a failed Send and carry on; no page
// or API response ever depends on the mail relay.
package notify

import (
	"context"
	"log/slog"
)

// Message is one plain-text e-mail to one recipient.
type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
}

// Mailer sends a Message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them. It is the
// Mailer used when no SendGrid key is configured, so local setups still see
// what would have gone out.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info("mail not sent (no relay configured)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("bodyBytes", len(msg.Body)),
	)
	return nil
}
