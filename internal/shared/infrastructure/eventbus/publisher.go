// Package eventbus publishes audit events to a message broker.
//
// The engine treats the bus as a fire-and-forget audit sink: publish
// failures are logged by callers and never fail the triggering
// operation.
package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Publisher defines the interface for publishing events to a message broker.
type Publisher interface {
	// Publish sends a message to the event bus.
	Publish(ctx context.Context, routingKey string, payload []byte) error

	// Close closes the publisher connection.
	Close() error
}

// AuditEvent is the envelope for engine audit events.
type AuditEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	RoutingKey string          `json:"routing_key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewAuditEvent wraps a payload into an audit event envelope.
func NewAuditEvent(routingKey string, occurredAt time.Time, payload any) (AuditEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return AuditEvent{}, err
	}
	return AuditEvent{
		EventID:    uuid.New(),
		RoutingKey: routingKey,
		OccurredAt: occurredAt,
		Payload:    raw,
	}, nil
}
