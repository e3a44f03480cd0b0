package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/internal/application/schema"
	"github.com/Aaryan2304/ai-support-system/internal/testutil"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

func newTestRouter(llm *testutil.MockLLM) (*Router, *testutil.NopMetrics) {
	metrics := testutil.NewNopMetrics()
	r := NewRouter(llm, schema.NewValidator(), metrics, zap.NewNop(), Config{
		ClassifyTimeout:     time.Second,
		ConfidenceThreshold: 0.4,
		FallbackConfidence:  0.5,
	})
	return r, metrics
}

func TestClassifyRoutesOrder(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddCompletion("where is my order",
		`{"agent": "ORDER", "confidence": 0.92, "reasoning": "asks about order status", "entities": {"order_id": null, "invoice_id": null}}`)
	r, metrics := newTestRouter(llm)

	decision := r.Classify(context.Background(), "Where is my order ORD-12345?", nil)

	assert.Equal(t, domain.SpecialistOrder, decision.Specialist)
	assert.InDelta(t, 0.92, decision.Confidence, 0.001)
	assert.False(t, decision.Degraded)
	// Entity left null by the model is backfilled from the message text.
	require.NotNil(t, decision.Entities.OrderID)
	assert.Equal(t, "ORD-12345", *decision.Entities.OrderID)
	assert.Equal(t, 1, metrics.Routings)
	assert.Equal(t, 0, metrics.Degraded)
}

func TestClassifyStripsMarkdownFences(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddCompletion("charged twice",
		"```json\n{\"agent\": \"BILLING\", \"confidence\": 0.8, \"reasoning\": \"billing dispute\"}\n```")
	r, _ := newTestRouter(llm)

	decision := r.Classify(context.Background(), "I was charged twice on INV-77", nil)

	assert.Equal(t, domain.SpecialistBilling, decision.Specialist)
	require.NotNil(t, decision.Entities.InvoiceID)
	assert.Equal(t, "INV-77", *decision.Entities.InvoiceID)
}

func TestClassifyLowConfidenceOverridesToUnresolved(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.AddCompletion("hmm",
		`{"agent": "SUPPORT", "confidence": 0.2, "reasoning": "unclear"}`)
	r, _ := newTestRouter(llm)

	decision := r.Classify(context.Background(), "hmm", nil)

	assert.Equal(t, domain.SpecialistUnresolved, decision.Specialist)
	assert.InDelta(t, 0.2, decision.Confidence, 0.001)
}

func TestClassifyModelFailureFallsBackToKeywords(t *testing.T) {
	llm := testutil.NewMockLLM("")
	llm.SetCompleteErr(errors.New("connection refused"))
	r, metrics := newTestRouter(llm)

	decision := r.Classify(context.Background(), "I want my money back, please refund invoice INV-9", nil)

	assert.Equal(t, domain.SpecialistBilling, decision.Specialist)
	assert.True(t, decision.Degraded)
	// Degraded confidence stays above the threshold so the turn still routes.
	assert.InDelta(t, 0.5, decision.Confidence, 0.001)
	require.NotNil(t, decision.Entities.InvoiceID)
	assert.Equal(t, "INV-9", *decision.Entities.InvoiceID)
	assert.Equal(t, 1, metrics.Degraded)
}

func TestClassifyRetriesOnceThenSucceeds(t *testing.T) {
	llm := testutil.NewMockLLM("this is not json at all")
	llm.AddCompletion("previous reply did not match",
		`{"agent": "ORDER", "confidence": 0.7, "reasoning": "order question"}`)
	r, _ := newTestRouter(llm)

	decision := r.Classify(context.Background(), "track my package", nil)

	assert.Equal(t, domain.SpecialistOrder, decision.Specialist)
	assert.Len(t, llm.CompleteCalls(), 2)
}

func TestClassifyFailsClosedAfterSecondBadReply(t *testing.T) {
	llm := testutil.NewMockLLM(`{"agent": "SHIPPING", "confidence": "high"}`)
	r, _ := newTestRouter(llm)

	decision := r.Classify(context.Background(), "anyone there?", nil)

	// Two structurally invalid replies default to the support specialist
	// instead of failing the turn.
	assert.Equal(t, domain.SpecialistSupport, decision.Specialist)
	assert.Len(t, llm.CompleteCalls(), 2)
}

func TestFallbackClassifyDefaultsToSupport(t *testing.T) {
	decision := fallbackClassify("hello, I need help with my account", 0.5)
	assert.Equal(t, domain.SpecialistSupport, decision.Specialist)
	assert.True(t, decision.Degraded)
}

func TestFallbackClassifyMostHitsWins(t *testing.T) {
	decision := fallbackClassify("cancel the order before shipping, refund later", 0.5)
	assert.Equal(t, domain.SpecialistOrder, decision.Specialist)
}

func TestExtractEntities(t *testing.T) {
	entities := extractEntities("order ORD-abc-1 and invoice INV-2024-9")
	require.NotNil(t, entities.OrderID)
	require.NotNil(t, entities.InvoiceID)
	assert.Equal(t, "ORD-abc-1", *entities.OrderID)
	assert.Equal(t, "INV-2024-9", *entities.InvoiceID)

	entities = extractEntities("no references here")
	assert.Nil(t, entities.OrderID)
	assert.Nil(t, entities.InvoiceID)
}
