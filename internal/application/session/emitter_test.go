package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aaryan2304/ai-support-system/internal/testutil"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

func TestEmitterDeliversInOrder(t *testing.T) {
	e := NewEmitter(8, testutil.NewNopMetrics())
	ctx := context.Background()

	require.NoError(t, e.Emit(ctx, domain.TurnEvent{Type: domain.EventTyping}))
	require.NoError(t, e.Emit(ctx, domain.TurnEvent{Type: domain.EventRouting}))
	require.NoError(t, e.Emit(ctx, domain.TurnEvent{Type: domain.EventPartial, Text: "hi"}))
	e.EmitTerminal(ctx, domain.TurnEvent{Type: domain.EventFinal, Text: "hi"})

	var types []domain.TurnEventType
	for ev := range e.Events() {
		types = append(types, ev.Type)
		assert.False(t, ev.Timestamp.IsZero())
	}
	assert.Equal(t, []domain.TurnEventType{
		domain.EventTyping,
		domain.EventRouting,
		domain.EventPartial,
		domain.EventFinal,
	}, types)
}

func TestEmitterSingleTerminal(t *testing.T) {
	e := NewEmitter(8, testutil.NewNopMetrics())
	ctx := context.Background()

	e.EmitTerminal(ctx, domain.TurnEvent{Type: domain.EventFinal, Text: "done"})
	// A failure after completion must not produce a second terminal.
	e.EmitTerminal(ctx, domain.TurnEvent{Type: domain.EventError, ErrorMessage: "late"})

	var events []domain.TurnEvent
	for ev := range e.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventFinal, events[0].Type)
}

func TestEmitterEmitStopsWhenConsumerGone(t *testing.T) {
	e := NewEmitter(1, testutil.NewNopMetrics())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, e.Emit(ctx, domain.TurnEvent{Type: domain.EventTyping}))

	// Buffer full and nobody reading: a cancelled context unblocks the send.
	cancel()
	err := e.Emit(ctx, domain.TurnEvent{Type: domain.EventPartial, Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEmitterTerminalClosesStreamWhenConsumerGone(t *testing.T) {
	e := NewEmitter(1, testutil.NewNopMetrics())
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, e.Emit(ctx, domain.TurnEvent{Type: domain.EventTyping}))
	cancel()
	e.EmitTerminal(ctx, domain.TurnEvent{Type: domain.EventFinal})

	// The stream still closes so a late consumer does not hang.
	var count int
	for range e.Events() {
		count++
	}
	assert.Equal(t, 1, count)
}
