// Package producer publishes JSON messages (auth events, outbox mail) to Kafka.
package producer

import (
	"context"

	"github.com/meisaku0/backend/internal/telemetry/domain"
)

// Producer emits auth events and publishes arbitrary keyed payloads. Callers use it
// best-effort: log and ignore errors.
type Producer interface {
	Emit(ctx context.Context, event *domain.AuthEvent) error
	Publish(ctx context.Context, key string, v any) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}

var _ Producer = (*KafkaProducer)(nil)
