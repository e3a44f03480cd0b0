package domain

import (
	"encoding/json"
	"time"
)

// TurnEventType identifies a turn lifecycle event. Per turn the caller
// observes: typing, routing, zero or more tool_call, zero or more partial,
// then exactly one of final or error.
type TurnEventType string

const (
	EventTyping   TurnEventType = "typing"
	EventRouting  TurnEventType = "routing"
	EventToolCall TurnEventType = "tool_call"
	EventPartial  TurnEventType = "partial"
	EventFinal    TurnEventType = "final"
	EventError    TurnEventType = "error"
)

// Terminal reports whether the event type ends a turn.
func (t TurnEventType) Terminal() bool {
	return t == EventFinal || t == EventError
}

// TurnEvent is one entry of the ordered event sequence delivered to the
// caller during a turn.
type TurnEvent struct {
	Type           TurnEventType    `json:"type"`
	ConversationID string           `json:"conversation_id"`
	TurnID         string           `json:"turn_id"`
	Routing        *RoutingDecision `json:"routing,omitempty"`
	Tool           string           `json:"tool,omitempty"`
	Params         json.RawMessage  `json:"params,omitempty"`
	Text           string           `json:"text,omitempty"`
	MessageID      string           `json:"message_id,omitempty"`
	ErrorMessage   string           `json:"error,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}
