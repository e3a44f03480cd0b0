package tools

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/Aaryan2304/ai-support-system/pkg/adapters/storage/memory"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

func seedInvoice(t *testing.T, repo *storagemem.Repository, id string, status domain.InvoiceStatus, amountCents, refundedCents int64) {
	t.Helper()
	require.NoError(t, repo.SaveInvoice(context.Background(), &domain.Invoice{
		ID:            id,
		UserID:        "u1",
		Status:        status,
		AmountCents:   amountCents,
		RefundedCents: refundedCents,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}))
}

func TestGetInvoice(t *testing.T) {
	repo := storagemem.NewRepository()
	seedInvoice(t, repo, "INV-1", domain.InvoicePaid, 10000, 0)
	tool := NewGetInvoice(repo)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"invoice_id": "INV-1"}`))
	require.NoError(t, err)

	var invoice domain.Invoice
	require.NoError(t, json.Unmarshal(out, &invoice))
	assert.Equal(t, domain.InvoicePaid, invoice.Status)
	assert.Equal(t, int64(10000), invoice.AmountCents)
}

func TestProcessRefundCompletesBelowThreshold(t *testing.T) {
	repo := storagemem.NewRepository()
	seedInvoice(t, repo, "INV-1", domain.InvoicePaid, 10000, 0)
	tool := NewProcessRefund(repo, 50000)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"invoice_id": "INV-1", "amount_cents": 2500}`))
	require.NoError(t, err)

	var result refundResult
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, domain.RefundCompleted, result.Status)
	assert.False(t, result.RequiresApproval)

	invoice, err := repo.GetInvoice(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), invoice.RefundedCents)
	assert.Equal(t, domain.InvoicePaid, invoice.Status)
}

func TestProcessRefundFullAmountMarksInvoiceRefunded(t *testing.T) {
	repo := storagemem.NewRepository()
	seedInvoice(t, repo, "INV-1", domain.InvoicePaid, 10000, 0)
	tool := NewProcessRefund(repo, 50000)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"invoice_id": "INV-1", "amount_cents": 10000}`))
	require.NoError(t, err)

	invoice, err := repo.GetInvoice(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceRefunded, invoice.Status)
}

func TestProcessRefundAboveThresholdPendsApproval(t *testing.T) {
	repo := storagemem.NewRepository()
	seedInvoice(t, repo, "INV-1", domain.InvoicePaid, 100000, 0)
	tool := NewProcessRefund(repo, 50000)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"invoice_id": "INV-1", "amount_cents": 60000}`))
	require.NoError(t, err)

	var result refundResult
	require.NoError(t, json.Unmarshal(out, &result))
	assert.Equal(t, domain.RefundPendingApproval, result.Status)
	assert.True(t, result.RequiresApproval)

	// The invoice is untouched until the refund is approved.
	invoice, err := repo.GetInvoice(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), invoice.RefundedCents)
	assert.Equal(t, domain.InvoicePaid, invoice.Status)

	refunds := repo.Refunds()
	require.Len(t, refunds, 1)
	assert.Equal(t, domain.RefundPendingApproval, refunds[0].Status)
}

func TestProcessRefundRejectsUnpaidInvoice(t *testing.T) {
	repo := storagemem.NewRepository()
	seedInvoice(t, repo, "INV-1", domain.InvoiceIssued, 10000, 0)
	tool := NewProcessRefund(repo, 50000)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"invoice_id": "INV-1", "amount_cents": 1000}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindBusinessRule))
}

func TestProcessRefundRejectsOverRefund(t *testing.T) {
	repo := storagemem.NewRepository()
	seedInvoice(t, repo, "INV-1", domain.InvoicePaid, 10000, 8000)
	tool := NewProcessRefund(repo, 50000)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"invoice_id": "INV-1", "amount_cents": 3000}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindBusinessRule))
}

func TestProcessRefundConcurrentRefundsDoNotOverRefund(t *testing.T) {
	repo := storagemem.NewRepository()
	seedInvoice(t, repo, "INV-1", domain.InvoicePaid, 10000, 0)
	tool := NewProcessRefund(repo, 50000)

	// Two refunds that each pass the refundable check in isolation but
	// together exceed the invoice amount. Exactly one may go through.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = tool.Execute(context.Background(), json.RawMessage(`{"invoice_id": "INV-1", "amount_cents": 6000}`))
		}(i)
	}
	wg.Wait()

	var rejected int
	for _, err := range errs {
		if err != nil {
			assert.True(t, domain.IsKind(err, domain.KindBusinessRule))
			rejected++
		}
	}
	assert.Equal(t, 1, rejected)

	invoice, err := repo.GetInvoice(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), invoice.RefundedCents)
	assert.Equal(t, domain.InvoicePaid, invoice.Status)
}

func TestProcessRefundNotFound(t *testing.T) {
	tool := NewProcessRefund(storagemem.NewRepository(), 50000)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"invoice_id": "INV-404", "amount_cents": 100}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindBusinessRule))
}
