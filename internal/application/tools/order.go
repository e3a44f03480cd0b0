package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// GetOrderDetailsTool returns an order's current status and tracking
// identifier. Read-only.
type GetOrderDetailsTool struct {
	store ports.CommerceStore
}

// NewGetOrderDetails creates the getOrderDetails tool.
func NewGetOrderDetails(store ports.CommerceStore) *GetOrderDetailsTool {
	return &GetOrderDetailsTool{store: store}
}

func (t *GetOrderDetailsTool) Name() string { return "getOrderDetails" }

func (t *GetOrderDetailsTool) Description() string {
	return "Look up an order by its identifier. Returns status, items, total and tracking identifier."
}

func (t *GetOrderDetailsTool) Mutating() bool { return false }

var getOrderDetailsSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"order_id"},
	Properties: map[string]*jsonschema.Schema{
		"order_id": {
			Type:        "string",
			Description: "The order identifier, e.g. ORD-12345",
		},
	},
}

func (t *GetOrderDetailsTool) Schema() *jsonschema.Schema { return getOrderDetailsSchema }

type orderIDParams struct {
	OrderID string `json:"order_id"`
}

func (t *GetOrderDetailsTool) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p orderIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "decoding params")
	}

	order, err := t.store.GetOrder(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindBusinessRule, "order %s not found", p.OrderID)
		}
		return nil, domain.WrapError(domain.KindInternal, err, "loading order %s", p.OrderID)
	}

	return json.Marshal(order)
}

// CancelOrderTool moves an order to cancelled if the transition is reachable
// from its current state. Mutating; accepts an idempotency key.
type CancelOrderTool struct {
	store ports.CommerceStore
}

// NewCancelOrder creates the cancelOrder tool.
func NewCancelOrder(store ports.CommerceStore) *CancelOrderTool {
	return &CancelOrderTool{store: store}
}

func (t *CancelOrderTool) Name() string { return "cancelOrder" }

func (t *CancelOrderTool) Description() string {
	return "Cancel an order. Rejected when the order has shipped or is already in a terminal state."
}

func (t *CancelOrderTool) Mutating() bool { return true }

var cancelOrderSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"order_id"},
	Properties: map[string]*jsonschema.Schema{
		"order_id": {
			Type:        "string",
			Description: "The order identifier to cancel",
		},
		"reason": {
			Type:        "string",
			Description: "Optional reason for the cancellation",
		},
		"idempotency_key": {
			Type:        "string",
			Description: "Caller-supplied key ensuring the cancellation happens at most once",
		},
	},
}

func (t *CancelOrderTool) Schema() *jsonschema.Schema { return cancelOrderSchema }

type cancelOrderResult struct {
	OrderID     string             `json:"order_id"`
	Status      domain.OrderStatus `json:"status"`
	CancelledAt time.Time          `json:"cancelled_at"`
}

func (t *CancelOrderTool) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p orderIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "decoding params")
	}

	order, err := t.store.GetOrder(ctx, p.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindBusinessRule, "order %s not found", p.OrderID)
		}
		return nil, domain.WrapError(domain.KindInternal, err, "loading order %s", p.OrderID)
	}

	if !domain.CanTransition(order.Status, domain.OrderCancelled) {
		return nil, domain.NewError(domain.KindBusinessRule,
			"order %s cannot move from %s to %s", order.ID, order.Status, domain.OrderCancelled)
	}

	now := time.Now()
	order.Status = domain.OrderCancelled
	order.UpdatedAt = now
	if err := t.store.SaveOrder(ctx, order); err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "saving order %s", order.ID)
	}

	return json.Marshal(cancelOrderResult{
		OrderID:     order.ID,
		Status:      order.Status,
		CancelledAt: now,
	})
}
