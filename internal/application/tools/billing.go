package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/Aaryan2304/ai-support-system/internal/application/schema"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// GetInvoiceTool returns an invoice. Read-only.
type GetInvoiceTool struct {
	store ports.CommerceStore
}

// NewGetInvoice creates the getInvoice tool.
func NewGetInvoice(store ports.CommerceStore) *GetInvoiceTool {
	return &GetInvoiceTool{store: store}
}

func (t *GetInvoiceTool) Name() string { return "getInvoice" }

func (t *GetInvoiceTool) Description() string {
	return "Look up an invoice by its identifier. Returns status, amount and refunded amount."
}

func (t *GetInvoiceTool) Mutating() bool { return false }

var getInvoiceSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"invoice_id"},
	Properties: map[string]*jsonschema.Schema{
		"invoice_id": {
			Type:        "string",
			Description: "The invoice identifier, e.g. INV-2001",
		},
	},
}

func (t *GetInvoiceTool) Schema() *jsonschema.Schema { return getInvoiceSchema }

type invoiceIDParams struct {
	InvoiceID string `json:"invoice_id"`
}

func (t *GetInvoiceTool) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p invoiceIDParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "decoding params")
	}

	invoice, err := t.store.GetInvoice(ctx, p.InvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindBusinessRule, "invoice %s not found", p.InvoiceID)
		}
		return nil, domain.WrapError(domain.KindInternal, err, "loading invoice %s", p.InvoiceID)
	}

	return json.Marshal(invoice)
}

// ProcessRefundTool refunds part or all of a paid invoice. Mutating; accepts
// an idempotency key. Refunds above the approval threshold are accepted but
// flagged as pending approval instead of auto-completed.
type ProcessRefundTool struct {
	store         ports.CommerceStore
	approvalCents int64

	mu           sync.Mutex
	invoiceLocks map[string]*sync.Mutex
}

// NewProcessRefund creates the processRefund tool. approvalCents is the
// amount above which refunds require manual approval.
func NewProcessRefund(store ports.CommerceStore, approvalCents int64) *ProcessRefundTool {
	return &ProcessRefundTool{
		store:         store,
		approvalCents: approvalCents,
		invoiceLocks:  make(map[string]*sync.Mutex),
	}
}

// lockInvoice serializes refunds against one invoice; without this, two
// concurrent turns could both pass the refundable check and over-refund.
// Per-conversation turn serialization does not cover invoices shared
// across conversations.
func (t *ProcessRefundTool) lockInvoice(id string) func() {
	t.mu.Lock()
	lock, ok := t.invoiceLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		t.invoiceLocks[id] = lock
	}
	t.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (t *ProcessRefundTool) Name() string { return "processRefund" }

func (t *ProcessRefundTool) Description() string {
	return "Refund an amount against a paid invoice. Large refunds are queued for approval."
}

func (t *ProcessRefundTool) Mutating() bool { return true }

var processRefundSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"invoice_id", "amount_cents"},
	Properties: map[string]*jsonschema.Schema{
		"invoice_id": {
			Type:        "string",
			Description: "The invoice to refund against",
		},
		"amount_cents": {
			Type:        "integer",
			Minimum:     schema.F64(1),
			Description: "Refund amount in cents",
		},
		"reason": {
			Type:        "string",
			Description: "Optional reason for the refund",
		},
		"idempotency_key": {
			Type:        "string",
			Description: "Caller-supplied key ensuring the refund happens at most once",
		},
	},
}

func (t *ProcessRefundTool) Schema() *jsonschema.Schema { return processRefundSchema }

type refundParams struct {
	InvoiceID      string `json:"invoice_id"`
	AmountCents    int64  `json:"amount_cents"`
	Reason         string `json:"reason"`
	IdempotencyKey string `json:"idempotency_key"`
}

type refundResult struct {
	RefundID         string              `json:"refund_id"`
	InvoiceID        string              `json:"invoice_id"`
	AmountCents      int64               `json:"amount_cents"`
	Status           domain.RefundStatus `json:"status"`
	RequiresApproval bool                `json:"requires_approval"`
}

func (t *ProcessRefundTool) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	var p refundParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, domain.WrapError(domain.KindValidation, err, "decoding params")
	}

	unlock := t.lockInvoice(p.InvoiceID)
	defer unlock()

	invoice, err := t.store.GetInvoice(ctx, p.InvoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindBusinessRule, "invoice %s not found", p.InvoiceID)
		}
		return nil, domain.WrapError(domain.KindInternal, err, "loading invoice %s", p.InvoiceID)
	}

	if invoice.Status != domain.InvoicePaid {
		return nil, domain.NewError(domain.KindBusinessRule,
			"invoice %s is not paid (status %s)", invoice.ID, invoice.Status)
	}
	if p.AmountCents > invoice.RefundableCents() {
		return nil, domain.NewError(domain.KindBusinessRule,
			"refund of %d cents exceeds refundable amount %d on invoice %s",
			p.AmountCents, invoice.RefundableCents(), invoice.ID)
	}

	refund := &domain.Refund{
		ID:             uuid.New().String(),
		InvoiceID:      invoice.ID,
		AmountCents:    p.AmountCents,
		Reason:         p.Reason,
		Status:         domain.RefundCompleted,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      time.Now(),
	}

	if p.AmountCents > t.approvalCents {
		refund.Status = domain.RefundPendingApproval
	} else {
		invoice.RefundedCents += p.AmountCents
		if invoice.RefundedCents >= invoice.AmountCents {
			invoice.Status = domain.InvoiceRefunded
		}
		invoice.UpdatedAt = time.Now()
		if err := t.store.SaveInvoice(ctx, invoice); err != nil {
			return nil, domain.WrapError(domain.KindInternal, err, "saving invoice %s", invoice.ID)
		}
	}

	if err := t.store.SaveRefund(ctx, refund); err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "saving refund for invoice %s", invoice.ID)
	}

	return json.Marshal(refundResult{
		RefundID:         refund.ID,
		InvoiceID:        refund.InvoiceID,
		AmountCents:      refund.AmountCents,
		Status:           refund.Status,
		RequiresApproval: refund.Status == domain.RefundPendingApproval,
	})
}
