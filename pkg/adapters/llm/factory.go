package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/pkg/adapters/llm/anthropic"
	"github.com/Aaryan2304/ai-support-system/pkg/ports"
)

// Config holds LLM client configuration
type Config struct {
	Provider string
	APIKey   string
	Model    string
	Logger   *zap.Logger
}

// NewClient creates a new LLM client based on provider
func NewClient(cfg *Config) (ports.LLMClient, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewClient(cfg.APIKey, cfg.Model, cfg.Logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
