package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 0.4, cfg.Router.ConfidenceThreshold)
	assert.Equal(t, 0.5, cfg.Router.FallbackConfidence)
	assert.Equal(t, 2*time.Second, cfg.Tools.ExecutionTimeout)
	assert.Equal(t, int64(50000), cfg.Tools.RefundApprovalThresholdCents)
	assert.Equal(t, 20, cfg.Context.WindowSize)
	assert.Equal(t, 200, cfg.Context.MaxMessages)
	assert.Equal(t, 7000, cfg.Context.MaxTokens)
	assert.Equal(t, 5, cfg.Session.MaxToolCalls)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("SUPPORT_HTTP_PORT", "9090")
	t.Setenv("ROUTER_CONFIDENCE_THRESHOLD", "0.6")
	t.Setenv("CONTEXT_WINDOW_SIZE", "10")
	t.Setenv("SESSION_MAX_TOOL_CALLS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 0.6, cfg.Router.ConfidenceThreshold)
	assert.Equal(t, 10, cfg.Context.WindowSize)
	assert.Equal(t, 3, cfg.Session.MaxToolCalls)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTPPort: 8080,
			LogLevel: "info",
			Redis:    RedisConfig{Addr: "localhost:6379"},
			LLM:      LLMConfig{Provider: "anthropic", APIKey: "sk-test"},
			Router:   RouterConfig{ConfidenceThreshold: 0.4, FallbackConfidence: 0.5},
			Tools:    ToolConfig{ExecutionTimeout: 2 * time.Second},
			Context:  ContextConfig{WindowSize: 20, MaxMessages: 200, MaxTokens: 7000},
			Session:  SessionConfig{MaxToolCalls: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTPPort = 0 }, "invalid HTTP port"},
		{"missing redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis address"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }, "unsupported LLM provider"},
		{"threshold out of range", func(c *Config) { c.Router.ConfidenceThreshold = 1.5 }, "confidence threshold"},
		{"fallback out of range", func(c *Config) { c.Router.FallbackConfidence = -0.1 }, "fallback confidence"},
		{"zero tool timeout", func(c *Config) { c.Tools.ExecutionTimeout = 0 }, "tool execution timeout"},
		{"negative refund threshold", func(c *Config) { c.Tools.RefundApprovalThresholdCents = -1 }, "refund approval threshold"},
		{"window too small", func(c *Config) { c.Context.WindowSize = 0 }, "window size"},
		{"max messages below window", func(c *Config) { c.Context.MaxMessages = 20 }, "must exceed window size"},
		{"zero tool calls", func(c *Config) { c.Session.MaxToolCalls = 0 }, "max tool calls"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
