// Package mail hands transactional emails to a delivery service. Rendering and sending
// happen outside this process; messages carry a template name and its data.
package mail

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Templates known to the delivery service.
const (
	TemplateActivateEmail = "activate_email"
	TemplateResetPassword = "reset_password"
)

// Message is one email to deliver.
type Message struct {
	To       []string          `json:"to"`
	Subject  string            `json:"subject"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data"`
}

// Validate reports the first missing field.
func (m *Message) Validate() error {
	if len(m.To) == 0 {
		return errors.New("mail: at least one recipient is required")
	}
	if m.Template == "" {
		return errors.New("mail: template is required")
	}
	return nil
}

// Mailer queues a message for delivery.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// LogMailer writes messages to the context logger instead of delivering them. It is the
// development default when no brokers are configured.
type LogMailer struct{}

// Send logs msg at info level.
func (LogMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Str("template", msg.Template).
		Interface("data", msg.Data).
		Msg("mail: delivery disabled, message logged")
	return nil
}
