package session

import (
	"context"
	"sync"
	"time"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// Emitter delivers turn events to a single consumer in emission order.
// Sends block until the consumer receives them, so no event is ever
// dropped or reordered. The stream carries exactly one terminal event,
// after which the channel is closed.
type Emitter struct {
	ch       chan domain.TurnEvent
	terminal sync.Once
	metrics  ports.MetricsCollector
}

// NewEmitter creates an emitter with the given channel buffer.
func NewEmitter(buffer int, metrics ports.MetricsCollector) *Emitter {
	if buffer < 1 {
		buffer = 1
	}
	return &Emitter{
		ch:      make(chan domain.TurnEvent, buffer),
		metrics: metrics,
	}
}

// Events returns the ordered event stream. It is closed after the
// terminal event has been delivered.
func (e *Emitter) Events() <-chan domain.TurnEvent { return e.ch }

// Emit delivers a non-terminal event. It blocks until the consumer
// takes the event or ctx is cancelled.
func (e *Emitter) Emit(ctx context.Context, ev domain.TurnEvent) error {
	ev.Timestamp = time.Now()
	select {
	case e.ch <- ev:
		e.metrics.RecordEventEmitted(string(ev.Type))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EmitTerminal delivers the single terminal event and closes the
// stream. At most one terminal event is ever sent; later calls are
// no-ops, so a turn that fails after completing cannot produce a
// second terminal. If ctx is already cancelled the consumer is gone
// and the stream is closed without the send.
func (e *Emitter) EmitTerminal(ctx context.Context, ev domain.TurnEvent) {
	e.terminal.Do(func() {
		ev.Timestamp = time.Now()
		select {
		case e.ch <- ev:
			e.metrics.RecordEventEmitted(string(ev.Type))
		case <-ctx.Done():
		}
		close(e.ch)
	})
}
