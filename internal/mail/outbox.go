package mail

import (
	"context"
	"fmt"
)

// Publisher writes a JSON value under a partition key; *producer.KafkaProducer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Outbox publishes messages to the mail topic consumed by the delivery service.
type Outbox struct {
	pub Publisher
}

// NewOutbox returns a Mailer publishing through pub.
func NewOutbox(pub Publisher) *Outbox {
	return &Outbox{pub: pub}
}

// Send publishes msg keyed by its first recipient, so mail to one address stays ordered.
func (o *Outbox) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := o.pub.Publish(ctx, msg.To[0], msg); err != nil {
		return fmt.Errorf("mail: publish %s: %w", msg.Template, err)
	}
	return nil
}
