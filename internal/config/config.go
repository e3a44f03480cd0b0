package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the support engine
type Config struct {
	// Server configuration
	HTTPPort int    `env:"SUPPORT_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis configuration
	Redis RedisConfig

	// LLM configuration
	LLM LLMConfig

	// Router configuration
	Router RouterConfig

	// Tool registry configuration
	Tools ToolConfig

	// Context manager configuration
	Context ContextConfig

	// Turn execution configuration
	Session SessionConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Record expiry; zero keeps records forever
	RecordTTL time.Duration `env:"REDIS_RECORD_TTL" envDefault:"0"`

	// Approximate cap on mirrored event streams
	EventStreamMaxLen int64 `env:"REDIS_EVENT_STREAM_MAXLEN" envDefault:"10000"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`
	Model    string `env:"LLM_MODEL" envDefault:"claude-sonnet-4-5"`
}

// RouterConfig holds intent classification configuration
type RouterConfig struct {
	ClassifyTimeout     time.Duration `env:"ROUTER_CLASSIFY_TIMEOUT" envDefault:"10s"`
	ConfidenceThreshold float64       `env:"ROUTER_CONFIDENCE_THRESHOLD" envDefault:"0.4"`
	// Confidence assigned to keyword-fallback decisions. Kept above the
	// confidence threshold so degraded mode still routes.
	FallbackConfidence float64 `env:"ROUTER_FALLBACK_CONFIDENCE" envDefault:"0.5"`
	MaxTokens          int     `env:"ROUTER_MAX_TOKENS" envDefault:"512"`
}

// ToolConfig holds tool registry configuration
type ToolConfig struct {
	ExecutionTimeout time.Duration `env:"TOOL_EXECUTION_TIMEOUT" envDefault:"2s"`
	// Refunds above this amount are held for human approval
	RefundApprovalThresholdCents int64 `env:"REFUND_APPROVAL_THRESHOLD_CENTS" envDefault:"50000"`
}

// ContextConfig holds conversation context configuration
type ContextConfig struct {
	WindowSize       int           `env:"CONTEXT_WINDOW_SIZE" envDefault:"20"`
	MaxMessages      int           `env:"CONTEXT_MAX_MESSAGES" envDefault:"200"`
	MaxTokens        int           `env:"CONTEXT_MAX_TOKENS" envDefault:"7000"`
	SummarizeTimeout time.Duration `env:"CONTEXT_SUMMARIZE_TIMEOUT" envDefault:"30s"`
	SummaryMaxTokens int           `env:"CONTEXT_SUMMARY_MAX_TOKENS" envDefault:"1024"`
}

// SessionConfig holds turn execution configuration
type SessionConfig struct {
	MaxToolCalls    int           `env:"SESSION_MAX_TOOL_CALLS" envDefault:"5"`
	GenerateTimeout time.Duration `env:"SESSION_GENERATE_TIMEOUT" envDefault:"30s"`
	MaxTokens       int           `env:"SESSION_MAX_TOKENS" envDefault:"2048"`
	EventBuffer     int           `env:"SESSION_EVENT_BUFFER" envDefault:"16"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required")
	}
	if c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}

	if c.Router.ConfidenceThreshold < 0 || c.Router.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1]: %f", c.Router.ConfidenceThreshold)
	}
	if c.Router.FallbackConfidence < 0 || c.Router.FallbackConfidence > 1 {
		return fmt.Errorf("fallback confidence must be in [0,1]: %f", c.Router.FallbackConfidence)
	}

	if c.Tools.ExecutionTimeout <= 0 {
		return fmt.Errorf("tool execution timeout must be positive")
	}
	if c.Tools.RefundApprovalThresholdCents < 0 {
		return fmt.Errorf("refund approval threshold must not be negative")
	}

	if c.Context.WindowSize < 1 {
		return fmt.Errorf("context window size must be at least 1")
	}
	if c.Context.MaxMessages <= c.Context.WindowSize {
		return fmt.Errorf("context max messages (%d) must exceed window size (%d)",
			c.Context.MaxMessages, c.Context.WindowSize)
	}

	if c.Session.MaxToolCalls < 1 {
		return fmt.Errorf("session max tool calls must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
