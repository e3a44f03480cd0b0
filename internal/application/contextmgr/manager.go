package contextmgr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// Config holds context-window tunables. The thresholds are illustrative
// defaults, not validated constants.
type Config struct {
	// WindowSize is the number of recent messages kept in the active window.
	WindowSize int
	// MaxMessages triggers compaction when the active message count exceeds it.
	MaxMessages int
	// MaxTokens triggers compaction when the estimated token total exceeds it.
	MaxTokens int
	// SummarizeTimeout bounds the summarization call.
	SummarizeTimeout time.Duration
	SummaryMaxTokens int
}

// Manager maintains the bounded message window of a conversation and
// compacts older messages into a running summary.
type Manager struct {
	llm     ports.LLMClient
	store   ports.ConversationStore
	metrics ports.MetricsCollector
	logger  *zap.Logger
	cfg     Config
}

// NewManager creates a context manager.
func NewManager(llm ports.LLMClient, store ports.ConversationStore, metrics ports.MetricsCollector, logger *zap.Logger, cfg Config) *Manager {
	if cfg.SummaryMaxTokens == 0 {
		cfg.SummaryMaxTokens = 1024
	}
	return &Manager{
		llm:     llm,
		store:   store,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// WindowFor returns the most recent messages of the conversation, prepended
// by the running summary when one exists.
func (m *Manager) WindowFor(ctx context.Context, conv *domain.Conversation) ([]ports.ChatMessage, error) {
	msgs, err := m.store.Messages(ctx, conv.ID, false)
	if err != nil {
		return nil, domain.WrapError(domain.KindInternal, err, "loading messages for %s", conv.ID)
	}

	if len(msgs) > m.cfg.WindowSize {
		msgs = msgs[len(msgs)-m.cfg.WindowSize:]
	}

	window := make([]ports.ChatMessage, 0, len(msgs)+1)
	if conv.Summary != "" {
		window = append(window, ports.ChatMessage{
			Role:    domain.RoleSystem,
			Content: "Summary of the conversation so far: " + conv.Summary,
		})
	}
	for _, msg := range msgs {
		window = append(window, ports.ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return window, nil
}

const summarizeSystemPrompt = `Summarize the following customer support conversation.
Keep every order number, invoice number, amount and commitment made to the customer.
Reply with the summary text only.`

// MaybeCompact compacts the conversation when the active message count or the
// estimated token total exceeds its threshold. Messages older than the
// retained window are summarized and archived, not destroyed. A failed
// summarization never blocks the turn; compaction is retried next turn.
// Invoking it again without new messages changes nothing.
func (m *Manager) MaybeCompact(ctx context.Context, conv *domain.Conversation) error {
	msgs, err := m.store.Messages(ctx, conv.ID, false)
	if err != nil {
		return domain.WrapError(domain.KindInternal, err, "loading messages for %s", conv.ID)
	}

	if len(msgs) <= m.cfg.MaxMessages && conv.TokenEstimate <= m.cfg.MaxTokens {
		return nil
	}
	if len(msgs) <= m.cfg.WindowSize {
		// Nothing older than the retained window.
		return nil
	}

	older := msgs[:len(msgs)-m.cfg.WindowSize]
	retained := msgs[len(msgs)-m.cfg.WindowSize:]

	summary, err := m.summarize(ctx, conv.Summary, older)
	if err != nil {
		m.metrics.RecordCompaction("failed")
		m.logger.Warn("compaction summarization failed, proceeding uncompacted",
			zap.String("conversation_id", conv.ID),
			zap.Error(err))
		return nil
	}

	olderIDs := make([]string, len(older))
	for i, msg := range older {
		olderIDs[i] = msg.ID
	}
	if err := m.store.ArchiveMessages(ctx, conv.ID, olderIDs); err != nil {
		m.metrics.RecordCompaction("failed")
		return domain.WrapError(domain.KindInternal, err, "archiving messages for %s", conv.ID)
	}

	conv.Summary = summary
	conv.Compactions++
	conv.TokenEstimate = domain.EstimateTokens(summary)
	for _, msg := range retained {
		conv.TokenEstimate += domain.EstimateTokens(msg.Content)
	}
	conv.UpdatedAt = time.Now()

	if err := m.store.SaveConversation(ctx, conv); err != nil {
		return domain.WrapError(domain.KindInternal, err, "saving conversation %s", conv.ID)
	}

	m.metrics.RecordCompaction("success")
	m.logger.Info("conversation compacted",
		zap.String("conversation_id", conv.ID),
		zap.Int("archived_messages", len(older)),
		zap.Int("token_estimate", conv.TokenEstimate),
		zap.Int("compactions", conv.Compactions))

	return nil
}

func (m *Manager) summarize(ctx context.Context, priorSummary string, older []*domain.Message) (string, error) {
	var b strings.Builder
	if priorSummary != "" {
		fmt.Fprintf(&b, "Earlier summary:\n%s\n\n", priorSummary)
	}
	b.WriteString("Transcript:\n")
	for _, msg := range older {
		fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.SummarizeTimeout)
	defer cancel()

	start := time.Now()
	summary, err := m.llm.Complete(callCtx, ports.CompletionRequest{
		System:    summarizeSystemPrompt,
		Messages:  []ports.ChatMessage{{Role: domain.RoleUser, Content: b.String()}},
		MaxTokens: m.cfg.SummaryMaxTokens,
	})
	if err != nil {
		m.metrics.RecordLLMCall("summarize", "error", time.Since(start))
		return "", err
	}
	m.metrics.RecordLLMCall("summarize", "success", time.Since(start))
	return strings.TrimSpace(summary), nil
}
