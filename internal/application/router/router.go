package router

import (
	"context"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/internal/application/schema"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// Config holds router tunables.
type Config struct {
	// ClassifyTimeout bounds the model classification call.
	ClassifyTimeout time.Duration
	// ConfidenceThreshold below which the target is overridden to Unresolved.
	ConfidenceThreshold float64
	// FallbackConfidence is the fixed confidence of keyword-fallback
	// decisions. Kept above ConfidenceThreshold so degraded mode still
	// routes.
	FallbackConfidence float64
	MaxTokens          int
}

// Router classifies a user message into a target specialist.
type Router struct {
	llm       ports.LLMClient
	validator *schema.Validator
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	cfg       Config
}

// NewRouter creates a new router.
func NewRouter(llm ports.LLMClient, validator *schema.Validator, metrics ports.MetricsCollector, logger *zap.Logger, cfg Config) *Router {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}
	return &Router{
		llm:       llm,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// classificationSchema is the strict structural contract for model replies.
var classificationSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"agent", "confidence", "reasoning"},
	Properties: map[string]*jsonschema.Schema{
		"agent": {
			Type: "string",
			Enum: []any{"SUPPORT", "ORDER", "BILLING"},
		},
		"confidence": {
			Type:    "number",
			Minimum: schema.F64(0),
			Maximum: schema.F64(1),
		},
		"reasoning": {Type: "string"},
		"entities": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"order_id":   {Types: []string{"string", "null"}},
				"invoice_id": {Types: []string{"string", "null"}},
			},
		},
	},
}

// classification mirrors the contract for decoding a validated reply.
type classification struct {
	Agent      string  `json:"agent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	Entities   struct {
		OrderID   *string `json:"order_id"`
		InvoiceID *string `json:"invoice_id"`
	} `json:"entities"`
}

const classifySystemPrompt = `You are the intent router of a customer support system.
Classify the user's message into exactly one specialist:
- SUPPORT: general questions, account help, anything not covered below
- ORDER: order status, shipping, delivery, tracking, cancellations
- BILLING: invoices, charges, payments, refunds

Respond with ONLY a JSON object, no prose, matching exactly:
{"agent": "SUPPORT"|"ORDER"|"BILLING", "confidence": <number 0..1>, "reasoning": "<one sentence>", "entities": {"order_id": "<ORD-... or null>", "invoice_id": "<INV-... or null>"}}`

const classifyRetryPrompt = `Your previous reply did not match the required structure.
Respond again with ONLY the JSON object described below. No markdown, no prose.
{"agent": "SUPPORT"|"ORDER"|"BILLING", "confidence": <number 0..1>, "reasoning": "<one sentence>", "entities": {"order_id": "<string or null>", "invoice_id": "<string or null>"}}`

// Classify produces the turn's routing decision. It never returns an error:
// a malformed model reply fails closed to the default specialist, and an
// unreachable or timed-out model falls back to the keyword classifier.
func (r *Router) Classify(ctx context.Context, userMessage string, recent []ports.ChatMessage) *domain.RoutingDecision {
	raw, err := r.complete(ctx, classifySystemPrompt, userMessage, recent)
	if err != nil {
		r.logger.Warn("classification call failed, using keyword fallback",
			zap.Error(err))
		decision := fallbackClassify(userMessage, r.cfg.FallbackConfidence)
		r.metrics.RecordRouting(string(decision.Specialist), true)
		return r.applyThreshold(decision)
	}

	decision, err := r.parse(raw, userMessage)
	if err != nil {
		// Retry exactly once with an amended prompt restating the contract.
		r.logger.Warn("classification reply failed validation, retrying once",
			zap.Error(err))
		raw, retryErr := r.complete(ctx, classifyRetryPrompt, userMessage, recent)
		if retryErr == nil {
			if retried, parseErr := r.parse(raw, userMessage); parseErr == nil {
				r.metrics.RecordRouting(string(retried.Specialist), false)
				return r.applyThreshold(retried)
			}
		}
		// Fail closed to the default specialist: the system always makes
		// forward progress rather than erroring on a malformed reply.
		decision = &domain.RoutingDecision{
			Specialist: domain.SpecialistSupport,
			Confidence: r.cfg.FallbackConfidence,
			Rationale:  "model reply failed structural validation twice; defaulting to support",
			Entities:   extractEntities(userMessage),
		}
		r.metrics.RecordRouting(string(decision.Specialist), false)
		return r.applyThreshold(decision)
	}

	r.metrics.RecordRouting(string(decision.Specialist), false)
	return r.applyThreshold(decision)
}

func (r *Router) complete(ctx context.Context, system, userMessage string, recent []ports.ChatMessage) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.ClassifyTimeout)
	defer cancel()

	msgs := make([]ports.ChatMessage, 0, len(recent)+1)
	msgs = append(msgs, recent...)
	msgs = append(msgs, ports.ChatMessage{Role: domain.RoleUser, Content: userMessage})

	start := time.Now()
	raw, err := r.llm.Complete(callCtx, ports.CompletionRequest{
		System:    system,
		Messages:  msgs,
		MaxTokens: r.cfg.MaxTokens,
	})
	if err != nil {
		r.metrics.RecordLLMCall("classify", "error", time.Since(start))
		return "", err
	}
	r.metrics.RecordLLMCall("classify", "success", time.Since(start))
	return raw, nil
}

func (r *Router) parse(raw, userMessage string) (*domain.RoutingDecision, error) {
	data := extractJSON(raw)

	var c classification
	if err := r.validator.ValidateInto(classificationSchema, []byte(data), &c); err != nil {
		return nil, err
	}

	decision := &domain.RoutingDecision{
		Specialist: domain.Specialist(c.Agent),
		Confidence: c.Confidence,
		Rationale:  c.Reasoning,
		Entities: domain.Entities{
			OrderID:   c.Entities.OrderID,
			InvoiceID: c.Entities.InvoiceID,
		},
	}

	// Entity fields are best-effort: backfill from the message text when the
	// model omitted them.
	if decision.Entities.OrderID == nil || decision.Entities.InvoiceID == nil {
		extracted := extractEntities(userMessage)
		if decision.Entities.OrderID == nil {
			decision.Entities.OrderID = extracted.OrderID
		}
		if decision.Entities.InvoiceID == nil {
			decision.Entities.InvoiceID = extracted.InvoiceID
		}
	}

	return decision, nil
}

// applyThreshold overrides the target to Unresolved when confidence is below
// the configured threshold, regardless of what was returned.
func (r *Router) applyThreshold(decision *domain.RoutingDecision) *domain.RoutingDecision {
	if decision.Confidence < r.cfg.ConfidenceThreshold {
		r.logger.Info("routing confidence below threshold, marking unresolved",
			zap.Float64("confidence", decision.Confidence),
			zap.Float64("threshold", r.cfg.ConfidenceThreshold),
			zap.String("original_target", string(decision.Specialist)))
		decision.Specialist = domain.SpecialistUnresolved
	}
	return decision
}

// extractJSON strips markdown fences and surrounding prose from a model
// reply, returning the outermost JSON object.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}
