package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

// Repository implements ports.Repository using Redis
type Repository struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRepository creates a new Redis repository. A zero ttl keeps records
// forever.
func NewRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Repository {
	return &Repository{
		client: client,
		logger: logger.Named("redis"),
		ttl:    ttl,
	}
}

// Ping verifies connectivity to Redis.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation (ports.ConversationStore interface)
func (r *Repository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	data, err := r.client.Get(ctx, conversationKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

// SaveConversation persists a conversation (ports.ConversationStore interface)
func (r *Repository) SaveConversation(ctx context.Context, conv *domain.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	if err := r.client.Set(ctx, conversationKey(conv.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// SaveMessage appends a message to its conversation (ports.ConversationStore interface)
func (r *Repository) SaveMessage(ctx context.Context, msg *domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, messageKey(msg.ID), data, r.ttl)
		pipe.RPush(ctx, messageListKey(msg.ConversationID), msg.ID)
		if r.ttl > 0 {
			pipe.Expire(ctx, messageListKey(msg.ConversationID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// Messages returns a conversation's messages in append order
// (ports.ConversationStore interface)
func (r *Repository) Messages(ctx context.Context, conversationID string, includeArchived bool) ([]*domain.Message, error) {
	ids, err := r.client.LRange(ctx, messageListKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = messageKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	msgs := make([]*domain.Message, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var msg domain.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		if msg.Archived && !includeArchived {
			continue
		}
		msgs = append(msgs, &msg)
	}
	return msgs, nil
}

// ArchiveMessages marks messages as archived (ports.ConversationStore interface)
func (r *Repository) ArchiveMessages(ctx context.Context, conversationID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	updated := make(map[string][]byte, len(messageIDs))
	for _, id := range messageIDs {
		data, err := r.client.Get(ctx, messageKey(id)).Bytes()
		if err != nil {
			if err == redis.Nil {
				return fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
			}
			return fmt.Errorf("failed to get message: %w", err)
		}
		var msg domain.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to unmarshal message: %w", err)
		}
		msg.Archived = true
		out, err := json.Marshal(&msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		updated[id] = out
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, data := range updated {
			pipe.Set(ctx, messageKey(id), data, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to archive messages: %w", err)
	}

	r.logger.Debug("messages archived",
		zap.String("conversation_id", conversationID),
		zap.Int("count", len(messageIDs)))
	return nil
}

// CommitTurn writes the agent message and updated conversation atomically
// (ports.ConversationStore interface)
func (r *Repository) CommitTurn(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	convData, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	msgData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, conversationKey(conv.ID), convData, r.ttl)
		pipe.Set(ctx, messageKey(msg.ID), msgData, r.ttl)
		pipe.RPush(ctx, messageListKey(msg.ConversationID), msg.ID)
		if r.ttl > 0 {
			pipe.Expire(ctx, messageListKey(msg.ConversationID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit turn: %w", err)
	}

	r.logger.Debug("turn committed",
		zap.String("conversation_id", conv.ID),
		zap.String("message_id", msg.ID))
	return nil
}

// SaveToolInvocation appends to the audit trail (ports.AuditStore interface)
func (r *Repository) SaveToolInvocation(ctx context.Context, inv *domain.ToolInvocation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("failed to marshal invocation: %w", err)
	}
	key := auditKey(inv.ConversationID)
	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to save invocation: %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set audit TTL: %w", err)
		}
	}
	return nil
}

// ToolInvocations returns the audit trail in append order (ports.AuditStore interface)
func (r *Repository) ToolInvocations(ctx context.Context, conversationID string) ([]*domain.ToolInvocation, error) {
	entries, err := r.client.LRange(ctx, auditKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list invocations: %w", err)
	}

	invs := make([]*domain.ToolInvocation, 0, len(entries))
	for _, raw := range entries {
		var inv domain.ToolInvocation
		if err := json.Unmarshal([]byte(raw), &inv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invocation: %w", err)
		}
		invs = append(invs, &inv)
	}
	return invs, nil
}

// GetIdempotency retrieves a stored result by key (ports.IdempotencyStore interface)
func (r *Repository) GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	data, err := r.client.Get(ctx, idempotencyKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("idempotency key %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	var rec domain.IdempotencyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	return &rec, nil
}

// PutIdempotency stores a record unless the key exists. SetNX makes the
// first writer win (ports.IdempotencyStore interface)
func (r *Repository) PutIdempotency(ctx context.Context, rec *domain.IdempotencyRecord) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	stored, err := r.client.SetNX(ctx, idempotencyKey(rec.Key), data, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return stored, nil
}

// GetOrder retrieves an order (ports.CommerceStore interface)
func (r *Repository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	data, err := r.client.Get(ctx, orderKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

// SaveOrder persists an order (ports.CommerceStore interface)
func (r *Repository) SaveOrder(ctx context.Context, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := r.client.Set(ctx, orderKey(order.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// GetInvoice retrieves an invoice (ports.CommerceStore interface)
func (r *Repository) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	data, err := r.client.Get(ctx, invoiceKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("invoice %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	var invoice domain.Invoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return nil, fmt.Errorf("failed to unmarshal invoice: %w", err)
	}
	return &invoice, nil
}

// SaveInvoice persists an invoice (ports.CommerceStore interface)
func (r *Repository) SaveInvoice(ctx context.Context, invoice *domain.Invoice) error {
	data, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("failed to marshal invoice: %w", err)
	}
	if err := r.client.Set(ctx, invoiceKey(invoice.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// SaveRefund persists a refund record (ports.CommerceStore interface)
func (r *Repository) SaveRefund(ctx context.Context, refund *domain.Refund) error {
	data, err := json.Marshal(refund)
	if err != nil {
		return fmt.Errorf("failed to marshal refund: %w", err)
	}
	if err := r.client.Set(ctx, refundKey(refund.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save refund: %w", err)
	}
	return nil
}

func conversationKey(id string) string { return "support:conv:" + id }
func messageKey(id string) string      { return "support:msg:" + id }
func messageListKey(id string) string  { return "support:conv:" + id + ":messages" }
func auditKey(id string) string        { return "support:conv:" + id + ":audit" }
func idempotencyKey(key string) string { return "support:idem:" + key }
func orderKey(id string) string        { return "support:order:" + id }
func invoiceKey(id string) string      { return "support:invoice:" + id }
func refundKey(id string) string       { return "support:refund:" + id }
