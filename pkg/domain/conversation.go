package domain

import (
	"time"
)

// Role identifies the sender of a message.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Conversation groups the messages exchanged with a single user. The token
// estimate is recomputed after every appended message and after every
// compaction; Summary is non-empty only after at least one compaction.
type Conversation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Summary       string    `json:"summary,omitempty"`
	Compactions   int       `json:"compactions"`
	TokenEstimate int       `json:"token_estimate"`
	MessageCount  int       `json:"message_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Message is a single conversation entry. Immutable once persisted except for
// metadata enrichment during the turn that created it, and the archive flag
// set by compaction.
type Message struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Specialist     Specialist      `json:"specialist,omitempty"`
	Metadata       MessageMetadata `json:"metadata"`
	Archived       bool            `json:"archived,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// MessageMetadata records how a message was produced for later audit.
type MessageMetadata struct {
	Routing           *RoutingDecision `json:"routing,omitempty"`
	ToolInvocationIDs []string         `json:"tool_invocation_ids,omitempty"`
	TokenEstimate     int              `json:"token_estimate"`
}

// EstimateTokens approximates token usage from content length. Deterministic
// and cheap; roughly four characters per token.
func EstimateTokens(content string) int {
	return (len(content) + 3) / 4
}
