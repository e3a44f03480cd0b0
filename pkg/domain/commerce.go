package domain

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// orderTransitions lists the reachable next states per current state.
// Delivered and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// CanTransition reports whether an order in state from may move to state to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// Order is a customer order queried and mutated by the order tools.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Status     OrderStatus `json:"status"`
	Items      []string    `json:"items,omitempty"`
	TotalCents int64       `json:"total_cents"`
	TrackingID string      `json:"tracking_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceIssued   InvoiceStatus = "issued"
	InvoicePaid     InvoiceStatus = "paid"
	InvoiceRefunded InvoiceStatus = "refunded"
	InvoiceVoid     InvoiceStatus = "void"
)

// Invoice is a billing document. RefundedCents accumulates completed refunds;
// the amount still refundable is AmountCents - RefundedCents.
type Invoice struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order_id,omitempty"`
	UserID        string        `json:"user_id"`
	Status        InvoiceStatus `json:"status"`
	AmountCents   int64         `json:"amount_cents"`
	RefundedCents int64         `json:"refunded_cents"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// RefundableCents returns the amount still available for refund.
func (i *Invoice) RefundableCents() int64 {
	return i.AmountCents - i.RefundedCents
}

// RefundStatus is the lifecycle state of a refund.
type RefundStatus string

const (
	// RefundCompleted means the refund was applied to the invoice.
	RefundCompleted RefundStatus = "completed"
	// RefundPendingApproval means the amount exceeded the auto-approve
	// threshold; the refund is accepted but awaits manual approval.
	RefundPendingApproval RefundStatus = "pending_approval"
)

// Refund is the outcome of a processRefund tool call.
type Refund struct {
	ID             string       `json:"id"`
	InvoiceID      string       `json:"invoice_id"`
	AmountCents    int64        `json:"amount_cents"`
	Reason         string       `json:"reason,omitempty"`
	Status         RefundStatus `json:"status"`
	IdempotencyKey string       `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}
