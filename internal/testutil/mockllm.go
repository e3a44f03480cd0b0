package testutil

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// MockLLM provides deterministic model responses for testing.
// Completions match user message content against registered patterns;
// tool-use steps are scripted and consumed in order.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu            sync.Mutex
	completions   []completionRule
	fallback      string
	completeErr   error
	steps         []stepOutcome
	streamChunks  []string
	streamErr     error
	openErr       error
	completeCalls []ports.CompletionRequest
	stepCalls     []ports.StepRequest
	streamCalls   []ports.CompletionRequest
}

type completionRule struct {
	pattern  string // substring match, case-insensitive
	response string
}

type stepOutcome struct {
	result *ports.StepResult
	err    error
}

// NewMockLLM creates a mock with the given fallback completion. The
// fallback is returned when no pattern matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddCompletion registers a pattern-response pair. First match wins.
func (m *MockLLM) AddCompletion(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, completionRule{
		pattern:  strings.ToLower(pattern),
		response: response,
	})
}

// SetCompleteErr makes every Complete call fail with err.
func (m *MockLLM) SetCompleteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeErr = err
}

// QueueStep appends a scripted Step outcome. Outcomes are consumed in
// order; a Step call past the script returns an empty no-tools result.
func (m *MockLLM) QueueStep(result *ports.StepResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, stepOutcome{result: result, err: err})
}

// SetStream makes Stream yield the given chunks then io.EOF.
func (m *MockLLM) SetStream(chunks ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamChunks = chunks
}

// SetStreamErr makes Stream fail with err after its chunks.
func (m *MockLLM) SetStreamErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamErr = err
}

// SetStreamOpenErr makes Stream fail at open.
func (m *MockLLM) SetStreamOpenErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// CompleteCalls returns a copy of all recorded Complete requests.
func (m *MockLLM) CompleteCalls() []ports.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ports.CompletionRequest, len(m.completeCalls))
	copy(cp, m.completeCalls)
	return cp
}

// StepCalls returns a copy of all recorded Step requests.
func (m *MockLLM) StepCalls() []ports.StepRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ports.StepRequest, len(m.stepCalls))
	copy(cp, m.stepCalls)
	return cp
}

// Complete implements ports.LLMClient.
func (m *MockLLM) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeCalls = append(m.completeCalls, req)

	if m.completeErr != nil {
		return "", m.completeErr
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	haystack := strings.ToLower(requestText(req))
	for _, rule := range m.completions {
		if strings.Contains(haystack, rule.pattern) {
			return rule.response, nil
		}
	}
	return m.fallback, nil
}

// Step implements ports.LLMClient.
func (m *MockLLM) Step(ctx context.Context, req ports.StepRequest) (*ports.StepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stepCalls = append(m.stepCalls, req)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(m.steps) == 0 {
		return &ports.StepResult{Done: true}, nil
	}
	next := m.steps[0]
	m.steps = m.steps[1:]
	return next.result, next.err
}

// Stream implements ports.LLMClient.
func (m *MockLLM) Stream(ctx context.Context, req ports.CompletionRequest) (ports.TextStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamCalls = append(m.streamCalls, req)

	if m.openErr != nil {
		return nil, m.openErr
	}
	chunks := make([]string, len(m.streamChunks))
	copy(chunks, m.streamChunks)
	return &sliceStream{chunks: chunks, err: m.streamErr}, nil
}

func requestText(req ports.CompletionRequest) string {
	var b strings.Builder
	b.WriteString(req.System)
	for _, msg := range req.Messages {
		b.WriteString("\n")
		b.WriteString(msg.Content)
	}
	return b.String()
}

// sliceStream yields fixed chunks then io.EOF or a scripted error.
type sliceStream struct {
	chunks []string
	err    error
	closed bool
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}
