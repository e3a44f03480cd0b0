package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
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

// Config holds the turn execution limits.
type Config struct {
	// MaxToolCalls caps tool invocations within a single turn.
	MaxToolCalls int
	// GenerateTimeout bounds each model call made during a turn.
	GenerateTimeout time.Duration
	// MaxTokens bounds the model output per call.
	MaxTokens int
	// EventBuffer sizes the per-turn event channel.
	EventBuffer int
}

// TurnHandle identifies a started turn and carries its event stream.
// The Events channel is closed after the terminal event.
type TurnHandle struct {
	TurnID         string
	ConversationID string
	Events         <-chan domain.TurnEvent
}

// Manager starts turns and serializes them per conversation: concurrent
// messages for the same conversation queue in arrival order, while
// different conversations proceed in parallel.
type Manager struct {
	router     *router.Router
	dispatch   *specialist.Dispatch
	registry   *tools.Registry
	contextMgr *contextmgr.Manager
	llm        ports.LLMClient
	repo       ports.Repository
	publisher  ports.EventPublisher
	metrics    ports.MetricsCollector
	logger     *zap.Logger
	cfg        Config

	locksMu   sync.Mutex
	convLocks map[string]*convLock
	active    sync.Map // turn ID -> context.CancelFunc
	activeCnt atomic.Int64
	wg        sync.WaitGroup
	closed    atomic.Bool
}

// convLock serializes turns for one conversation. refs counts holders
// and waiters so the entry can be dropped once the last turn releases.
type convLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager wires a turn manager from its collaborators.
func NewManager(
	rt *router.Router,
	dispatch *specialist.Dispatch,
	registry *tools.Registry,
	contextMgr *contextmgr.Manager,
	llm ports.LLMClient,
	repo ports.Repository,
	publisher ports.EventPublisher,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	cfg Config,
) *Manager {
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = 5
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 16
	}
	return &Manager{
		router:     rt,
		dispatch:   dispatch,
		registry:   registry,
		contextMgr: contextMgr,
		llm:        llm,
		repo:       repo,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger.Named("session"),
		cfg:        cfg,
		convLocks:  make(map[string]*convLock),
	}
}

// HandleMessage starts a turn for one user message and returns its event
// stream. An empty conversationID starts a new conversation. The turn is
// cancelled when ctx is cancelled; in-flight tool executions finish but
// no new work starts.
func (m *Manager) HandleMessage(ctx context.Context, userID, conversationID, content string) (*TurnHandle, error) {
	if m.closed.Load() {
		return nil, domain.NewError(domain.KindConflict, "shutting down, not accepting new turns")
	}
	if content == "" {
		return nil, domain.NewError(domain.KindValidation, "message content must not be empty")
	}
	if userID == "" {
		return nil, domain.NewError(domain.KindValidation, "user_id must not be empty")
	}
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	turnID := uuid.New().String()
	emitter := NewEmitter(m.cfg.EventBuffer, m.metrics)
	turnCtx, cancel := context.WithCancel(ctx)
	m.active.Store(turnID, cancel)
	m.wg.Add(1)

	go m.runTurn(turnCtx, cancel, emitter, turnID, userID, conversationID, content)

	return &TurnHandle{
		TurnID:         turnID,
		ConversationID: conversationID,
		Events:         emitter.Events(),
	}, nil
}

func (m *Manager) runTurn(ctx context.Context, cancel context.CancelFunc, emitter *Emitter, turnID, userID, conversationID, content string) {
	defer m.wg.Done()
	defer m.active.Delete(turnID)
	defer cancel()

	// One turn at a time per conversation; later messages wait here.
	lock := m.acquireLock(conversationID)
	lock.mu.Lock()
	defer m.releaseLock(conversationID, lock)

	m.metrics.SetActiveTurns(int(m.activeCnt.Add(1)))
	defer func() {
		m.metrics.SetActiveTurns(int(m.activeCnt.Add(-1)))
	}()

	conv, userMsg, err := m.prepare(ctx, userID, conversationID, content)
	if err != nil {
		m.logger.Error("turn preparation failed",
			zap.String("conversation_id", conversationID),
			zap.String("turn_id", turnID),
			zap.Error(err))
		emitter.EmitTerminal(ctx, domain.TurnEvent{
			Type:           domain.EventError,
			ConversationID: conversationID,
			TurnID:         turnID,
			ErrorMessage:   publicError(err),
		})
		return
	}

	turn := &Turn{
		id:         turnID,
		conv:       conv,
		userMsg:    userMsg,
		router:     m.router,
		dispatch:   m.dispatch,
		registry:   m.registry,
		contextMgr: m.contextMgr,
		llm:        m.llm,
		store:      m.repo,
		publisher:  m.publisher,
		metrics:    m.metrics,
		logger:     m.logger,
		emitter:    emitter,
		cfg:        m.cfg,
	}
	turn.Run(ctx)

	// Compaction runs between turns so it never delays a reply. A skipped
	// or failed pass is retried after the next turn.
	if err := m.contextMgr.MaybeCompact(ctx, conv); err != nil {
		m.logger.Warn("post-turn compaction failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}
}

// prepare loads or creates the conversation and durably appends the user
// message before any model work starts. A user message survives even if
// the turn later fails.
func (m *Manager) prepare(ctx context.Context, userID, conversationID, content string) (*domain.Conversation, *domain.Message, error) {
	now := time.Now()
	conv, err := m.repo.GetConversation(ctx, conversationID)
	switch {
	case err == nil:
		if conv.UserID != userID {
			return nil, nil, domain.NewError(domain.KindConflict, "conversation %s belongs to another user", conversationID)
		}
	case errors.Is(err, domain.ErrNotFound):
		conv = &domain.Conversation{
			ID:        conversationID,
			UserID:    userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		return nil, nil, domain.WrapError(domain.KindInternal, err, "loading conversation %s", conversationID)
	}

	msg := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		Role:           domain.RoleUser,
		Content:        content,
		Metadata: domain.MessageMetadata{
			TokenEstimate: domain.EstimateTokens(content),
		},
		CreatedAt: now,
	}
	conv.MessageCount++
	conv.TokenEstimate += msg.Metadata.TokenEstimate
	conv.UpdatedAt = now

	if err := m.repo.SaveMessage(ctx, msg); err != nil {
		return nil, nil, domain.WrapError(domain.KindInternal, err, "saving user message")
	}
	if err := m.repo.SaveConversation(ctx, conv); err != nil {
		return nil, nil, domain.WrapError(domain.KindInternal, err, "saving conversation %s", conversationID)
	}
	return conv, msg, nil
}

func (m *Manager) acquireLock(conversationID string) *convLock {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock, ok := m.convLocks[conversationID]
	if !ok {
		lock = &convLock{}
		m.convLocks[conversationID] = lock
	}
	lock.refs++
	return lock
}

// releaseLock unlocks and drops the map entry once no turn holds or
// waits on it, so the lock map stays bounded by in-flight conversations.
func (m *Manager) releaseLock(conversationID string, lock *convLock) {
	lock.mu.Unlock()
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(m.convLocks, conversationID)
	}
}

// ActiveTurns reports the number of turns currently executing or queued.
func (m *Manager) ActiveTurns() int {
	return int(m.activeCnt.Load())
}

// Shutdown stops accepting new turns, cancels active ones and waits for
// them to finish or for ctx to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closed.Store(true)
	m.active.Range(func(_, v any) bool {
		v.(context.CancelFunc)()
		return true
	})

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown wait: %w", ctx.Err())
	}
}

// publicError extracts the customer-safe message from an error. Internal
// detail never crosses the API boundary.
func publicError(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindInternal {
		return de.Message
	}
	return "Something went wrong on our side. Please try again."
}
