package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

// ChatMessage is a plain role/content message for model requests.
type ChatMessage struct {
	Role    domain.Role
	Content string
}

// CompletionRequest asks the model for a single text completion. Used for
// classification and summarization.
type CompletionRequest struct {
	System    string
	Messages  []ChatMessage
	MaxTokens int
}

// ToolSpec declares a tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolOutcome feeds a tool result back into the model.
type ToolOutcome struct {
	CallID  string
	Content string
	IsError bool
}

// StepMessage is one entry of a tool-use exchange.
type StepMessage struct {
	Role      domain.Role
	Content   string
	ToolCalls []ToolCall
	Outcomes  []ToolOutcome
}

// StepRequest asks the model for the next step of a tool-use exchange.
type StepRequest struct {
	System    string
	Messages  []StepMessage
	Tools     []ToolSpec
	MaxTokens int
}

// StepResult is the model's next step: response text, the tool calls it
// wants executed, and whether it considers the exchange finished.
type StepResult struct {
	Text      string
	ToolCalls []ToolCall
	Done      bool
}

// TextStream is a cancellable lazy sequence of text increments. Recv returns
// io.EOF when generation completes; Close releases the underlying stream.
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// LLMClient is the language-model capability. Implementations must honor the
// request context's deadline; callers bound every call with a timeout. The
// capability is replaceable without changing any component above it.
type LLMClient interface {
	// Complete returns a single text completion.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// Step advances a tool-use exchange by one model turn.
	Step(ctx context.Context, req StepRequest) (*StepResult, error)
	// Stream generates a completion as a lazy sequence of text increments.
	Stream(ctx context.Context, req CompletionRequest) (TextStream, error)
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	SaveConversation(ctx context.Context, conv *domain.Conversation) error
	SaveMessage(ctx context.Context, msg *domain.Message) error
	Messages(ctx context.Context, conversationID string, includeArchived bool) ([]*domain.Message, error)
	ArchiveMessages(ctx context.Context, conversationID string, messageIDs []string) error
	// CommitTurn writes the agent message and the updated conversation as one
	// atomic unit. Partial writes are not acceptable.
	CommitTurn(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error
}

// AuditStore persists the append-only tool invocation trail.
type AuditStore interface {
	SaveToolInvocation(ctx context.Context, inv *domain.ToolInvocation) error
	ToolInvocations(ctx context.Context, conversationID string) ([]*domain.ToolInvocation, error)
}

// IdempotencyStore maps caller-supplied keys to first successful results.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	// PutIdempotency stores rec unless the key already exists. Returns false
	// without overwriting on collision.
	PutIdempotency(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error)
}

// CommerceStore persists the domain entities the tools operate on.
type CommerceStore interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	SaveOrder(ctx context.Context, order *domain.Order) error
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	SaveInvoice(ctx context.Context, invoice *domain.Invoice) error
	SaveRefund(ctx context.Context, refund *domain.Refund) error
}

// Repository is the full durable-store capability.
type Repository interface {
	ConversationStore
	AuditStore
	IdempotencyStore
	CommerceStore
}

// Event is an audit event mirrored to external consumers.
type Event struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id"`
	TurnID         string         `json:"turn_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Data           map[string]any `json:"data,omitempty"`
}

// EventPublisher mirrors turn lifecycle events to an external stream.
// Best-effort: publish failures must not affect the turn.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close() error
}

// MetricsCollector records operational metrics.
type MetricsCollector interface {
	RecordTurn(specialist, status string, duration time.Duration)
	RecordRouting(specialist string, degraded bool)
	RecordToolExecution(tool, status string, duration time.Duration)
	RecordLLMCall(op, status string, duration time.Duration)
	RecordCompaction(status string)
	RecordEventEmitted(eventType string)
	SetActiveTurns(count int)
}
