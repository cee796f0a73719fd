package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey   string
	from     *mail.Email
	endpoint string // overrides the API URL in tests
	logger   *slog.Logger
}

// NewSendGridMailer builds a mailer that sends from fromAddress with the
// display name "Task Manager".
func NewSendGridMailer(apiKey, fromAddress string, logger *slog.Logger) *SendGridMailer {
	return &SendGridMailer{
		apiKey: apiKey,
		from:   mail.NewEmail("Task Manager", fromAddress),
		logger: logger,
	}
}

// Send delivers msg. SendGrid answers 202 Accepted on success; any status
// of 300 or above is returned as an error together with the response body.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	to := mail.NewEmail(msg.ToName, msg.To)
	htmlBody := "<p>" + strings.ReplaceAll(html.EscapeString(msg.Body), "\n", "<br>") + "</p>"
	message := mail.NewSingleEmail(m.from, msg.Subject, to, msg.Body, htmlBody)

	// The client keeps the request body on itself, so each send gets its own.
	client := sendgrid.NewSendClient(m.apiKey)
	if m.endpoint != "" {
		client.BaseURL = m.endpoint
	}

	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sending to %s: %w", msg.To, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}

	m.logger.Debug("mail sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("status", resp.StatusCode),
	)
	return nil
}
