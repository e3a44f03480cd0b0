package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/internal/application/schema"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// Tool is a named, validated operation over the external data store.
// Validation and execution are separate phases: Schema declares the parameter
// shape checked by the registry before Execute runs; Execute never runs
// without a prior successful validation.
type Tool interface {
	Name() string
	Description() string
	Schema() *jsonschema.Schema
	// Mutating reports whether the tool changes external state. Mutating
	// tools may accept an idempotency_key parameter.
	Mutating() bool
	Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
}

// Scope links an invocation to its conversation and turn for the audit trail.
type Scope struct {
	ConversationID string
	TurnID         string
}

// Registry holds the tool set and enforces the cross-cutting invocation
// rules: validate before execute, exactly one audit record per attempt, and
// idempotency-key deduplication for mutating tools.
type Registry struct {
	tools     map[string]Tool
	validator *schema.Validator
	audit     ports.AuditStore
	idem      ports.IdempotencyStore
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	timeout   time.Duration
}

// NewRegistry creates an empty registry.
func NewRegistry(
	validator *schema.Validator,
	audit ports.AuditStore,
	idem ports.IdempotencyStore,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	timeout time.Duration,
) *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		validator: validator,
		audit:     audit,
		idem:      idem,
		metrics:   metrics,
		logger:    logger,
		timeout:   timeout,
	}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(t Tool) error {
	if _, exists := r.tools[t.Name()]; exists {
		return domain.NewError(domain.KindInternal, "tool already registered: %s", t.Name())
	}
	r.tools[t.Name()] = t
	return nil
}

// Specs declares the named subset of tools in the shape the model expects.
func (r *Registry) Specs(names []string) ([]ports.ToolSpec, error) {
	specs := make([]ports.ToolSpec, 0, len(names))
	for _, name := range names {
		t, ok := r.tools[name]
		if !ok {
			return nil, domain.NewError(domain.KindInternal, "unknown tool: %s", name)
		}
		props, err := schema.Properties(t.Schema())
		if err != nil {
			return nil, domain.WrapError(domain.KindInternal, err, "flattening schema for %s", name)
		}
		specs = append(specs, ports.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Properties:  props,
			Required:    t.Schema().Required,
		})
	}
	return specs, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

type idempotencyParams struct {
	Key string `json:"idempotency_key"`
}

// Invoke runs one tool invocation attempt: validate, consult the idempotency
// store for mutating tools, execute under the bounded timeout, and write
// exactly one audit record before returning. The audit record is returned
// alongside the result so callers can reference it.
func (r *Registry) Invoke(ctx context.Context, scope Scope, name string, params json.RawMessage) (json.RawMessage, *domain.ToolInvocation, error) {
	start := time.Now()
	inv := &domain.ToolInvocation{
		ID:             uuid.New().String(),
		ConversationID: scope.ConversationID,
		TurnID:         scope.TurnID,
		Tool:           name,
		Params:         params,
		CreatedAt:      start,
	}

	tool, ok := r.tools[name]
	if !ok {
		err := domain.NewError(domain.KindValidation, "unknown tool: %s", name)
		return nil, inv, r.finish(ctx, inv, nil, err, start)
	}

	// Validation phase: no side effects, never executes on failure.
	if err := r.validator.Validate(tool.Schema(), params); err != nil {
		return nil, inv, r.finish(ctx, inv, nil, err, start)
	}

	// Idempotency: a key collision returns the stored result unchanged and
	// still writes an audit record marked as a deduplicated hit.
	var idemKey string
	if tool.Mutating() {
		var p idempotencyParams
		if err := json.Unmarshal(params, &p); err == nil {
			idemKey = p.Key
		}
		if idemKey != "" {
			rec, err := r.idem.GetIdempotency(ctx, idemKey)
			switch {
			case err == nil:
				inv.Deduplicated = true
				return rec.Result, inv, r.finish(ctx, inv, rec.Result, nil, start)
			case errors.Is(err, domain.ErrNotFound):
				// First use of the key.
			default:
				wrapped := domain.WrapError(domain.KindInternal, err, "idempotency lookup for %s", name)
				return nil, inv, r.finish(ctx, inv, nil, wrapped, start)
			}
		}
	}

	output, execErr := r.execute(ctx, tool, params)
	if execErr != nil {
		return nil, inv, r.finish(ctx, inv, nil, execErr, start)
	}

	if tool.Mutating() && idemKey != "" {
		rec := &domain.IdempotencyRecord{
			Key:       idemKey,
			Tool:      name,
			Result:    output,
			CreatedAt: time.Now(),
		}
		stored, err := r.idem.PutIdempotency(ctx, rec)
		if err != nil {
			wrapped := domain.WrapError(domain.KindInternal, err, "storing idempotency record for %s", name)
			return nil, inv, r.finish(ctx, inv, nil, wrapped, start)
		}
		if !stored {
			// Lost a race with a concurrent first call; the stored result is
			// authoritative.
			if prior, err := r.idem.GetIdempotency(ctx, idemKey); err == nil {
				inv.Deduplicated = true
				output = prior.Result
			}
		}
	}

	return output, inv, r.finish(ctx, inv, output, nil, start)
}

// execute runs the tool bounded by the registry timeout. A stuck tool does
// not block the turn: the result channel is buffered and abandoned.
func (r *Registry) execute(ctx context.Context, tool Tool, params json.RawMessage) (json.RawMessage, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		out json.RawMessage
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := tool.Execute(execCtx, params)
		ch <- result{out: out, err: err}
	}()

	select {
	case res := <-ch:
		if res.err != nil && execCtx.Err() == context.DeadlineExceeded {
			return nil, domain.WrapError(domain.KindTimeout, res.err, "tool %s exceeded %s", tool.Name(), r.timeout)
		}
		return res.out, res.err
	case <-execCtx.Done():
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, domain.NewError(domain.KindTimeout, "tool %s exceeded %s", tool.Name(), r.timeout)
		}
		return nil, domain.WrapError(domain.KindInternal, execCtx.Err(), "tool %s cancelled", tool.Name())
	}
}

// finish writes the audit record for the attempt and returns the invocation
// error. An audit write failure on a successful invocation surfaces as an
// error: a success without its audit record must not be reported as success.
func (r *Registry) finish(ctx context.Context, inv *domain.ToolInvocation, output json.RawMessage, invErr error, start time.Time) error {
	inv.Duration = time.Since(start)
	if invErr != nil {
		inv.Status = domain.InvocationError
		inv.ErrorMessage = invErr.Error()
		inv.ErrorKind = domain.KindOf(invErr)
	} else {
		inv.Status = domain.InvocationSuccess
		inv.Output = output
	}

	r.metrics.RecordToolExecution(inv.Tool, string(inv.Status), inv.Duration)

	if err := r.audit.SaveToolInvocation(ctx, inv); err != nil {
		r.logger.Error("failed to write tool audit record",
			zap.String("tool", inv.Tool),
			zap.String("invocation_id", inv.ID),
			zap.Error(err))
		if invErr == nil {
			return domain.WrapError(domain.KindInternal, err, "recording invocation of %s", inv.Tool)
		}
	}

	r.logger.Debug("tool invocation recorded",
		zap.String("tool", inv.Tool),
		zap.String("status", string(inv.Status)),
		zap.Bool("deduplicated", inv.Deduplicated),
		zap.Duration("duration", inv.Duration))

	return invErr
}
