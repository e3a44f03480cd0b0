package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/internal/application/schema"
	"github.com/Aaryan2304/ai-support-system/internal/testutil"
	storagemem "github.com/Aaryan2304/ai-support-system/pkg/adapters/storage/memory"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

// stubTool is a configurable tool for registry tests.
type stubTool struct {
	name     string
	mutating bool
	schema   *jsonschema.Schema
	execute  func(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	calls    int
}

func (s *stubTool) Name() string               { return s.name }
func (s *stubTool) Description() string        { return "stub" }
func (s *stubTool) Schema() *jsonschema.Schema { return s.schema }
func (s *stubTool) Mutating() bool             { return s.mutating }

func (s *stubTool) Execute(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	s.calls++
	return s.execute(ctx, params)
}

var stubSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"value"},
	Properties: map[string]*jsonschema.Schema{
		"value":           {Type: "string"},
		"idempotency_key": {Type: "string"},
	},
}

func newTestRegistry(t *testing.T, repo *storagemem.Repository, timeout time.Duration) (*Registry, *testutil.NopMetrics) {
	t.Helper()
	metrics := testutil.NewNopMetrics()
	return NewRegistry(schema.NewValidator(), repo, repo, metrics, zap.NewNop(), timeout), metrics
}

func echoTool(name string, mutating bool) *stubTool {
	return &stubTool{
		name:     name,
		mutating: mutating,
		schema:   stubSchema,
		execute: func(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{"echo": true}`), nil
		},
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	repo := storagemem.NewRepository()
	registry, _ := newTestRegistry(t, repo, time.Second)

	require.NoError(t, registry.Register(echoTool("echo", false)))
	assert.Error(t, registry.Register(echoTool("echo", false)))
}

func TestInvokeUnknownToolAuditsAndFails(t *testing.T) {
	repo := storagemem.NewRepository()
	registry, _ := newTestRegistry(t, repo, time.Second)
	scope := Scope{ConversationID: "c1", TurnID: "t1"}

	_, inv, err := registry.Invoke(context.Background(), scope, "nope", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	require.NotNil(t, inv)

	invs, err := repo.ToolInvocations(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, domain.InvocationError, invs[0].Status)
	assert.Equal(t, domain.KindValidation, invs[0].ErrorKind)
}

func TestInvokeValidationFailureNeverExecutes(t *testing.T) {
	repo := storagemem.NewRepository()
	registry, _ := newTestRegistry(t, repo, time.Second)
	tool := echoTool("echo", false)
	require.NoError(t, registry.Register(tool))

	_, _, err := registry.Invoke(context.Background(), Scope{ConversationID: "c1"}, "echo", json.RawMessage(`{"value": 5}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindValidation))
	assert.Equal(t, 0, tool.calls)

	// The rejected attempt still leaves an audit record.
	invs, err := repo.ToolInvocations(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, domain.InvocationError, invs[0].Status)
}

func TestInvokeSuccessWritesAuditRecord(t *testing.T) {
	repo := storagemem.NewRepository()
	registry, metrics := newTestRegistry(t, repo, time.Second)
	require.NoError(t, registry.Register(echoTool("echo", false)))

	out, inv, err := registry.Invoke(context.Background(), Scope{ConversationID: "c1", TurnID: "t1"}, "echo", json.RawMessage(`{"value": "x"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo": true}`, string(out))
	require.NotNil(t, inv)
	assert.Equal(t, domain.InvocationSuccess, inv.Status)

	invs, err := repo.ToolInvocations(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, "t1", invs[0].TurnID)
	assert.JSONEq(t, `{"echo": true}`, string(invs[0].Output))
	assert.Equal(t, 1, metrics.Tools)
}

func TestInvokeIdempotencyKeyDeduplicates(t *testing.T) {
	repo := storagemem.NewRepository()
	registry, _ := newTestRegistry(t, repo, time.Second)
	tool := echoTool("mutate", true)
	require.NoError(t, registry.Register(tool))

	params := json.RawMessage(`{"value": "x", "idempotency_key": "k1"}`)
	scope := Scope{ConversationID: "c1"}

	first, _, err := registry.Invoke(context.Background(), scope, "mutate", params)
	require.NoError(t, err)

	second, inv, err := registry.Invoke(context.Background(), scope, "mutate", params)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
	assert.True(t, inv.Deduplicated)
	// The tool itself only ran once.
	assert.Equal(t, 1, tool.calls)

	// Both attempts are audited.
	invs, err := repo.ToolInvocations(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, invs, 2)
	assert.False(t, invs[0].Deduplicated)
	assert.True(t, invs[1].Deduplicated)
}

func TestInvokeDifferentKeysExecuteSeparately(t *testing.T) {
	repo := storagemem.NewRepository()
	registry, _ := newTestRegistry(t, repo, time.Second)
	tool := echoTool("mutate", true)
	require.NoError(t, registry.Register(tool))
	scope := Scope{ConversationID: "c1"}

	_, _, err := registry.Invoke(context.Background(), scope, "mutate", json.RawMessage(`{"value": "x", "idempotency_key": "k1"}`))
	require.NoError(t, err)
	_, _, err = registry.Invoke(context.Background(), scope, "mutate", json.RawMessage(`{"value": "x", "idempotency_key": "k2"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, tool.calls)
}

func TestInvokeTimeoutReportsTimeoutKind(t *testing.T) {
	repo := storagemem.NewRepository()
	registry, _ := newTestRegistry(t, repo, 20*time.Millisecond)
	slow := &stubTool{
		name:   "slow",
		schema: stubSchema,
		execute: func(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	require.NoError(t, registry.Register(slow))

	_, _, err := registry.Invoke(context.Background(), Scope{ConversationID: "c1"}, "slow", json.RawMessage(`{"value": "x"}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindTimeout))

	invs, err := repo.ToolInvocations(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, domain.KindTimeout, invs[0].ErrorKind)
}

func TestSpecsDeclareRegisteredTools(t *testing.T) {
	repo := storagemem.NewRepository()
	registry, _ := newTestRegistry(t, repo, time.Second)
	require.NoError(t, registry.Register(echoTool("echo", false)))

	specs, err := registry.Specs([]string{"echo"})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "echo", specs[0].Name)
	assert.Equal(t, []string{"value"}, specs[0].Required)
	assert.Contains(t, specs[0].Properties, "value")

	_, err = registry.Specs([]string{"missing"})
	assert.Error(t, err)
}
