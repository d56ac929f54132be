package eventbus

import (
	"context"
	"sync"
)

// InProcessPublisher collects published messages in memory. It is used
// in tests and in single-process deployments without a broker.
type InProcessPublisher struct {
	mu       sync.Mutex
	messages []InProcessMessage
}

// InProcessMessage is one captured publish call.
type InProcessMessage struct {
	RoutingKey string
	Payload    []byte
}

// NewInProcessPublisher creates an in-memory publisher.
func NewInProcessPublisher() *InProcessPublisher {
	return &InProcessPublisher{}
}

// Publish records the message.
func (p *InProcessPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, InProcessMessage{RoutingKey: routingKey, Payload: payload})
	return nil
}

// Close is a no-op.
func (p *InProcessPublisher) Close() error {
	return nil
}

// Messages returns a copy of all captured messages.
func (p *InProcessPublisher) Messages() []InProcessMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]InProcessMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
