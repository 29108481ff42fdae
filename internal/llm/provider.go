package llm

import (
	"fmt"
	"time"
)

// Config holds provider-specific configuration.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
}

// NewClient creates a language-model client for the configured provider.
func NewClient(cfg Config) (Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}

	switch cfg.Provider {
	case "openai", "":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
