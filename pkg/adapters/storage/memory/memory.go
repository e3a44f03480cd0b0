package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

// Repository implements ports.Repository using in-memory maps
// This is for testing purposes only
type Repository struct {
	mu            sync.RWMutex
	conversations map[string]*domain.Conversation
	messages      map[string]*domain.Message
	messageOrder  map[string][]string
	invocations   map[string][]*domain.ToolInvocation
	idempotency   map[string]*domain.IdempotencyRecord
	orders        map[string]*domain.Order
	invoices      map[string]*domain.Invoice
	refunds       map[string]*domain.Refund
}

// NewRepository creates a new in-memory repository
func NewRepository() *Repository {
	return &Repository{
		conversations: make(map[string]*domain.Conversation),
		messages:      make(map[string]*domain.Message),
		messageOrder:  make(map[string][]string),
		invocations:   make(map[string][]*domain.ToolInvocation),
		idempotency:   make(map[string]*domain.IdempotencyRecord),
		orders:        make(map[string]*domain.Order),
		invoices:      make(map[string]*domain.Invoice),
		refunds:       make(map[string]*domain.Refund),
	}
}

// GetConversation retrieves a conversation (ports.ConversationStore interface)
func (r *Repository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	copied := *conv
	return &copied, nil
}

// SaveConversation persists a conversation (ports.ConversationStore interface)
func (r *Repository) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *conv
	r.conversations[conv.ID] = &copied
	return nil
}

// SaveMessage appends a message to its conversation (ports.ConversationStore interface)
func (r *Repository) SaveMessage(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.storeMessage(msg)
	return nil
}

func (r *Repository) storeMessage(msg *domain.Message) {
	copied := *msg
	if _, exists := r.messages[msg.ID]; !exists {
		r.messageOrder[msg.ConversationID] = append(r.messageOrder[msg.ConversationID], msg.ID)
	}
	r.messages[msg.ID] = &copied
}

// Messages returns a conversation's messages in append order
// (ports.ConversationStore interface)
func (r *Repository) Messages(ctx context.Context, conversationID string, includeArchived bool) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var msgs []*domain.Message
	for _, id := range r.messageOrder[conversationID] {
		msg := r.messages[id]
		if msg.Archived && !includeArchived {
			continue
		}
		copied := *msg
		msgs = append(msgs, &copied)
	}
	return msgs, nil
}

// ArchiveMessages marks messages as archived (ports.ConversationStore interface)
func (r *Repository) ArchiveMessages(ctx context.Context, conversationID string, messageIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range messageIDs {
		msg, ok := r.messages[id]
		if !ok {
			return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
		}
		msg.Archived = true
	}
	return nil
}

// CommitTurn writes the agent message and updated conversation atomically
// (ports.ConversationStore interface)
func (r *Repository) CommitTurn(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *conv
	r.conversations[conv.ID] = &copied
	r.storeMessage(msg)
	return nil
}

// SaveToolInvocation appends to the audit trail (ports.AuditStore interface)
func (r *Repository) SaveToolInvocation(ctx context.Context, inv *domain.ToolInvocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *inv
	r.invocations[inv.ConversationID] = append(r.invocations[inv.ConversationID], &copied)
	return nil
}

// ToolInvocations returns the audit trail in append order (ports.AuditStore interface)
func (r *Repository) ToolInvocations(ctx context.Context, conversationID string) ([]*domain.ToolInvocation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invs := make([]*domain.ToolInvocation, 0, len(r.invocations[conversationID]))
	for _, inv := range r.invocations[conversationID] {
		copied := *inv
		invs = append(invs, &copied)
	}
	return invs, nil
}

// GetIdempotency retrieves a stored result by key (ports.IdempotencyStore interface)
func (r *Repository) GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.idempotency[key]
	if !ok {
		return nil, fmt.Errorf("idempotency key %s: %w", key, domain.ErrNotFound)
	}
	copied := *rec
	return &copied, nil
}

// PutIdempotency stores a record unless the key exists
// (ports.IdempotencyStore interface)
func (r *Repository) PutIdempotency(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.idempotency[rec.Key]; exists {
		return false, nil
	}
	copied := *rec
	r.idempotency[rec.Key] = &copied
	return true, nil
}

// GetOrder retrieves an order (ports.CommerceStore interface)
func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	copied := *order
	return &copied, nil
}

// SaveOrder persists an order (ports.CommerceStore interface)
func (r *Repository) SaveOrder(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *order
	r.orders[order.ID] = &copied
	return nil
}

// GetInvoice retrieves an invoice (ports.CommerceStore interface)
func (r *Repository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoice, ok := r.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
	}
	copied := *invoice
	return &copied, nil
}

// SaveInvoice persists an invoice (ports.CommerceStore interface)
func (r *Repository) SaveInvoice(ctx context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *invoice
	r.invoices[invoice.ID] = &copied
	return nil
}

// SaveRefund persists a refund record (ports.CommerceStore interface)
func (r *Repository) SaveRefund(ctx context.Context, refund *domain.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *refund
	r.refunds[refund.ID] = &copied
	return nil
}

// Refunds returns all stored refunds. Test helper.
func (r *Repository) Refunds() []*domain.Refund {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Refund, 0, len(r.refunds))
	for _, ref := range r.refunds {
		copied := *ref
		out = append(out, &copied)
	}
	return out
}
