package memory

import (
	"context"
	"sync"

	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// RecordingPublisher implements EventPublisher by recording events
// This is for testing purposes only
type RecordingPublisher struct {
	mu     sync.RWMutex
	events []ports.Event
	closed bool
}

// NewRecordingPublisher creates a new recording publisher
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// Publish records an event
func (p *RecordingPublisher) Publish(ctx context.Context, topic string, event ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)
	return nil
}

// Events returns all recorded events
func (p *RecordingPublisher) Events() []ports.Event {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]ports.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Close marks the publisher closed
func (p *RecordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return nil
}
