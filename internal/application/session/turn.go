package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/internal/application/contextmgr"
	"github.com/Aaryan2304/ai-support-system/internal/application/router"
	"github.com/Aaryan2304/ai-support-system/internal/application/specialist"
	"github.com/Aaryan2304/ai-support-system/internal/application/tools"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// State is a phase of the turn lifecycle. A turn moves forward through
// the phases in order; Failed is reachable from any non-terminal phase.
type State string

const (
	StateStarted        State = "started"
	StateClassifying    State = "classifying"
	StateDispatching    State = "dispatching"
	StateExecutingTools State = "executing_tools"
	StateComposing      State = "composing"
	StatePersisting     State = "persisting"
	StateCompleted      State = "completed"
	StateFailed         State = "failed"
)

const composeInstruction = "\n\nWrite your final reply to the customer now. Respond with the message text only, no preamble."

// Turn runs one user message through classification, dispatch, tool
// execution, composition and persistence, emitting lifecycle events as
// it advances.
type Turn struct {
	id      string
	conv    *domain.Conversation
	userMsg *domain.Message

	router     *router.Router
	dispatch   *specialist.Dispatch
	registry   *tools.Registry
	contextMgr *contextmgr.Manager
	llm        ports.LLMClient
	store      ports.ConversationStore
	publisher  ports.EventPublisher
	metrics    ports.MetricsCollector
	logger     *zap.Logger
	emitter    *Emitter
	cfg        Config

	state         State
	decision      *domain.RoutingDecision
	invocationIDs []string
	startedAt     time.Time
}

// Run drives the turn to a terminal state. Exactly one terminal event
// (final or error) is emitted, after which the event stream is closed.
func (t *Turn) Run(ctx context.Context) {
	t.startedAt = time.Now()
	t.setState(StateStarted)

	err := t.run(ctx)

	target := "unknown"
	if t.decision != nil {
		target = string(t.decision.Specialist)
	}
	status := "completed"
	if err != nil {
		status = "failed"
		t.fail(ctx, err)
	}
	t.metrics.RecordTurn(target, status, time.Since(t.startedAt))
}

func (t *Turn) run(ctx context.Context) error {
	t.setState(StateClassifying)
	if err := t.emit(ctx, domain.TurnEvent{Type: domain.EventTyping}); err != nil {
		return err
	}

	window, err := t.contextMgr.WindowFor(ctx, t.conv)
	if err != nil {
		return err
	}
	// The user message was persisted before the turn started, so it is
	// already the last window entry. Drop it here; classification and
	// the tool loop append it themselves.
	if n := len(window); n > 0 && window[n-1].Role == domain.RoleUser && window[n-1].Content == t.userMsg.Content {
		window = window[:n-1]
	}

	// Classify never fails: model errors degrade to keyword routing
	// inside the router.
	t.decision = t.router.Classify(ctx, t.userMsg.Content, window)

	t.setState(StateDispatching)
	if err := t.emit(ctx, domain.TurnEvent{Type: domain.EventRouting, Routing: t.decision}); err != nil {
		return err
	}

	spec, err := t.dispatch.For(t.decision.Specialist)
	if err != nil {
		return err
	}

	var text string
	if clarifier, ok := spec.(specialist.Clarifier); ok {
		// Unresolved turns never reach the model or the tool registry.
		text = clarifier.Clarify(t.userMsg.Content)
		t.setState(StateComposing)
		if err := t.emit(ctx, domain.TurnEvent{Type: domain.EventPartial, Text: text}); err != nil {
			return err
		}
	} else {
		text, err = t.respond(ctx, spec, window)
		if err != nil {
			return err
		}
	}

	t.setState(StatePersisting)
	msg := t.agentMessage(text)
	t.conv.MessageCount++
	t.conv.TokenEstimate += msg.Metadata.TokenEstimate
	t.conv.UpdatedAt = time.Now()
	if err := t.store.CommitTurn(ctx, t.conv, msg); err != nil {
		return domain.WrapError(domain.KindInternal, err, "committing turn %s", t.id)
	}

	t.setState(StateCompleted)
	t.emitter.EmitTerminal(ctx, domain.TurnEvent{
		Type:           domain.EventFinal,
		ConversationID: t.conv.ID,
		TurnID:         t.id,
		Text:           text,
		MessageID:      msg.ID,
	})
	t.mirror("turn_completed", map[string]any{
		"specialist": string(t.decision.Specialist),
		"message_id": msg.ID,
		"tool_calls": len(t.invocationIDs),
	})
	return nil
}

// respond runs the tool loop for the dispatched specialist and then
// composes the streamed reply.
func (t *Turn) respond(ctx context.Context, spec specialist.Specialist, window []ports.ChatMessage) (string, error) {
	toolSpecs, err := t.registry.Specs(spec.Tools())
	if err != nil {
		return "", err
	}

	msgs := make([]ports.StepMessage, 0, len(window)+2)
	for _, m := range window {
		msgs = append(msgs, ports.StepMessage{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, ports.StepMessage{Role: domain.RoleUser, Content: t.userMsg.Content})

	t.setState(StateExecutingTools)
	calls := 0
	for {
		if err := ctx.Err(); err != nil {
			return "", domain.WrapError(domain.KindInternal, err, "turn cancelled")
		}

		res, err := t.step(ctx, spec, toolSpecs, msgs)
		if err != nil {
			return "", err
		}
		if len(res.ToolCalls) == 0 {
			break
		}

		outcomes := make([]ports.ToolOutcome, 0, len(res.ToolCalls))
		for _, call := range res.ToolCalls {
			// Cancellation boundary: in-flight work finishes, no new
			// tool call starts after cancellation.
			if err := ctx.Err(); err != nil {
				return "", domain.WrapError(domain.KindInternal, err, "turn cancelled")
			}
			if err := t.emit(ctx, domain.TurnEvent{
				Type:   domain.EventToolCall,
				Tool:   call.Name,
				Params: call.Input,
			}); err != nil {
				return "", err
			}

			outcome, err := t.invoke(ctx, call)
			if err != nil {
				return "", err
			}
			outcomes = append(outcomes, outcome)
			calls++
		}

		msgs = append(msgs,
			ports.StepMessage{Role: domain.RoleAgent, Content: res.Text, ToolCalls: res.ToolCalls},
			ports.StepMessage{Role: domain.RoleUser, Outcomes: outcomes},
		)

		if calls >= t.cfg.MaxToolCalls {
			t.logger.Warn("tool call budget reached, composing with results so far",
				zap.String("turn_id", t.id),
				zap.Int("calls", calls))
			break
		}
	}

	t.setState(StateComposing)
	return t.compose(ctx, spec, msgs)
}

func (t *Turn) step(ctx context.Context, spec specialist.Specialist, toolSpecs []ports.ToolSpec, msgs []ports.StepMessage) (*ports.StepResult, error) {
	stepCtx, cancel := context.WithTimeout(ctx, t.cfg.GenerateTimeout)
	defer cancel()

	start := time.Now()
	res, err := t.llm.Step(stepCtx, ports.StepRequest{
		System:    spec.System(),
		Messages:  msgs,
		Tools:     toolSpecs,
		MaxTokens: t.cfg.MaxTokens,
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.RecordLLMCall("step", status, time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.WrapError(domain.KindTimeout, err, "specialist step exceeded %s", t.cfg.GenerateTimeout)
		}
		return nil, domain.WrapError(domain.KindInternal, err, "specialist step")
	}
	return res, nil
}

// invoke runs one tool call through the registry. Validation, business
// rule and timeout failures come back as error outcomes the model can
// explain to the customer; internal failures abort the turn.
func (t *Turn) invoke(ctx context.Context, call ports.ToolCall) (ports.ToolOutcome, error) {
	out, inv, err := t.registry.Invoke(ctx, tools.Scope{
		ConversationID: t.conv.ID,
		TurnID:         t.id,
	}, call.Name, call.Input)
	if inv != nil && inv.ID != "" {
		t.invocationIDs = append(t.invocationIDs, inv.ID)
		t.mirror("tool_invoked", map[string]any{
			"tool":          inv.Tool,
			"invocation_id": inv.ID,
			"status":        string(inv.Status),
			"deduplicated":  inv.Deduplicated,
		})
	}

	switch {
	case err == nil:
		return ports.ToolOutcome{CallID: call.ID, Content: string(out)}, nil
	case domain.IsKind(err, domain.KindTimeout):
		return ports.ToolOutcome{
			CallID:  call.ID,
			Content: "The operation is taking longer than expected. Tell the customer and suggest trying again shortly.",
			IsError: true,
		}, nil
	case domain.IsKind(err, domain.KindValidation), domain.IsKind(err, domain.KindBusinessRule):
		return ports.ToolOutcome{CallID: call.ID, Content: publicError(err), IsError: true}, nil
	default:
		return ports.ToolOutcome{}, err
	}
}

// compose streams the final reply, forwarding each chunk as a partial
// event, and returns the accumulated text.
func (t *Turn) compose(ctx context.Context, spec specialist.Specialist, msgs []ports.StepMessage) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, t.cfg.GenerateTimeout)
	defer cancel()

	start := time.Now()
	stream, err := t.llm.Stream(genCtx, ports.CompletionRequest{
		System:    spec.System() + composeInstruction,
		Messages:  flatten(msgs),
		MaxTokens: t.cfg.MaxTokens,
	})
	if err != nil {
		t.metrics.RecordLLMCall("compose", "error", time.Since(start))
		return "", domain.WrapError(domain.KindInternal, err, "opening compose stream")
	}
	defer stream.Close()

	var b strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.metrics.RecordLLMCall("compose", "error", time.Since(start))
			if errors.Is(err, context.DeadlineExceeded) {
				return "", domain.WrapError(domain.KindTimeout, err, "composing reply exceeded %s", t.cfg.GenerateTimeout)
			}
			return "", domain.WrapError(domain.KindInternal, err, "composing reply")
		}
		if chunk == "" {
			continue
		}
		b.WriteString(chunk)
		if err := t.emit(ctx, domain.TurnEvent{Type: domain.EventPartial, Text: chunk}); err != nil {
			return "", err
		}
	}
	t.metrics.RecordLLMCall("compose", "success", time.Since(start))

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", domain.NewError(domain.KindInternal, "model produced an empty reply")
	}
	return text, nil
}

// flatten renders tool exchanges into plain chat messages for the
// composition call.
func flatten(msgs []ports.StepMessage) []ports.ChatMessage {
	out := make([]ports.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		content := m.Content
		for _, call := range m.ToolCalls {
			content += fmt.Sprintf("\n[called %s(%s)]", call.Name, string(call.Input))
		}
		for _, oc := range m.Outcomes {
			label := "result"
			if oc.IsError {
				label = "error"
			}
			content += fmt.Sprintf("\n[tool %s] %s", label, oc.Content)
		}
		content = strings.TrimSpace(content)
		if content == "" {
			continue
		}
		out = append(out, ports.ChatMessage{Role: m.Role, Content: content})
	}
	return out
}

func (t *Turn) agentMessage(text string) *domain.Message {
	return &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: t.conv.ID,
		Role:           domain.RoleAgent,
		Content:        text,
		Specialist:     t.decision.Specialist,
		Metadata: domain.MessageMetadata{
			Routing:           t.decision,
			ToolInvocationIDs: t.invocationIDs,
			TokenEstimate:     domain.EstimateTokens(text),
		},
		CreatedAt: time.Now(),
	}
}

// fail records the failure and emits the terminal error event. The
// agent message is never persisted for a failed turn; the user message
// already written stays in the conversation.
func (t *Turn) fail(ctx context.Context, err error) {
	t.setState(StateFailed)
	correlationID := uuid.New().String()
	t.logger.Error("turn failed",
		zap.String("conversation_id", t.conv.ID),
		zap.String("turn_id", t.id),
		zap.String("correlation_id", correlationID),
		zap.String("kind", string(domain.KindOf(err))),
		zap.Error(err))

	msg := publicError(err)
	if domain.KindOf(err) == domain.KindInternal {
		msg = fmt.Sprintf("Something went wrong on our side. Please try again (reference %s).", correlationID)
	}
	t.emitter.EmitTerminal(ctx, domain.TurnEvent{
		Type:           domain.EventError,
		ConversationID: t.conv.ID,
		TurnID:         t.id,
		ErrorMessage:   msg,
	})
	t.mirror("turn_failed", map[string]any{
		"kind":           string(domain.KindOf(err)),
		"correlation_id": correlationID,
	})
}

// mirror publishes a best-effort copy of the turn outcome to the event
// bus. Uses its own context so a cancelled turn can still be mirrored.
func (t *Turn) mirror(eventType string, data map[string]any) {
	if t.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ev := ports.Event{
		ID:             uuid.New().String(),
		Type:           eventType,
		ConversationID: t.conv.ID,
		TurnID:         t.id,
		Timestamp:      time.Now(),
		Data:           data,
	}
	if err := t.publisher.Publish(ctx, "turns", ev); err != nil {
		t.logger.Warn("event mirror publish failed",
			zap.String("turn_id", t.id),
			zap.Error(err))
	}
}

func (t *Turn) emit(ctx context.Context, ev domain.TurnEvent) error {
	ev.ConversationID = t.conv.ID
	ev.TurnID = t.id
	if err := t.emitter.Emit(ctx, ev); err != nil {
		return domain.WrapError(domain.KindInternal, err, "caller gone, abandoning turn")
	}
	return nil
}

func (t *Turn) setState(s State) {
	t.state = s
	t.logger.Debug("turn state",
		zap.String("turn_id", t.id),
		zap.String("state", string(s)))
}
