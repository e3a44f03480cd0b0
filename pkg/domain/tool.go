package domain

import (
	"encoding/json"
	"time"
)

// InvocationStatus records the outcome of a tool invocation attempt.
type InvocationStatus string

const (
	InvocationSuccess InvocationStatus = "success"
	InvocationError   InvocationStatus = "error"
)

// ToolInvocation is the append-only audit record of a single tool call
// attempt. Exactly one record exists per attempt, including failed attempts
// and deduplicated idempotency hits.
type ToolInvocation struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	TurnID         string           `json:"turn_id"`
	Tool           string           `json:"tool"`
	Params         json.RawMessage  `json:"params"`
	Output         json.RawMessage  `json:"output,omitempty"`
	ErrorMessage   string           `json:"error,omitempty"`
	ErrorKind      ErrorKind        `json:"error_kind,omitempty"`
	Status         InvocationStatus `json:"status"`
	Deduplicated   bool             `json:"deduplicated,omitempty"`
	Duration       time.Duration    `json:"duration_ns"`
	CreatedAt      time.Time        `json:"created_at"`
}

// IdempotencyRecord maps a caller-supplied key to the first successful result
// of a mutating tool. Never overwritten; a second invocation with the same key
// returns Result without re-executing side effects.
type IdempotencyRecord struct {
	Key       string          `json:"key"`
	Tool      string          `json:"tool"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}
