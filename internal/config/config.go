// Package config provides configuration loading for leaselogic.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. All orchestration knobs the analysis core depends on (model
// selection, retry caps, quality threshold, retrieval depth) live here
// rather than being hard-coded per component.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/leaselogic/internal/logging"
)

// Config holds the complete leaselogic configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     logging.Config    `koanf:"logging"`
	LLM         LLMConfig         `koanf:"llm"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	Analysis    AnalysisConfig    `koanf:"analysis"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LLMConfig holds language-model provider configuration.
//
// FastModel serves classification, grading, and query refinement;
// QualityModel serves evidence analysis and final synthesis.
type LLMConfig struct {
	Provider     string        `koanf:"provider"` // "openai" or "anthropic"
	FastModel    string        `koanf:"fast_model"`
	QualityModel string        `koanf:"quality_model"`
	APIKey       Secret        `koanf:"api_key"`
	BaseURL      string        `koanf:"base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	// RateLimit is the maximum requests per second to the provider.
	RateLimit float64 `koanf:"rate_limit"`
}

// EmbeddingsConfig holds embedding provider configuration.
type EmbeddingsConfig struct {
	Provider string `koanf:"provider"` // "openai"
	Model    string `koanf:"model"`
	APIKey   Secret `koanf:"api_key"`
	BaseURL  string `koanf:"base_url"`
}

// VectorStoreConfig holds the embedded vector database configuration.
type VectorStoreConfig struct {
	// Path is the directory for persistent storage.
	Path string `koanf:"path"`
	// Compress enables gzip compression for stored data.
	Compress bool `koanf:"compress"`
}

// AnalysisConfig holds the orchestration knobs.
type AnalysisConfig struct {
	// QualityThreshold is the minimum combined grade (0-10) that avoids a
	// requery. A grade below this sets needs_requery.
	QualityThreshold int `koanf:"quality_threshold"`

	// MaxIterations caps full orchestrator requery cycles.
	MaxIterations int `koanf:"max_iterations"`

	// LoopIterations caps attempts inside one corrective retrieval loop,
	// independently of MaxIterations.
	LoopIterations int `koanf:"loop_iterations"`

	// LeaseRetrievalK is how many lease chunks a retrieval returns.
	LeaseRetrievalK int `koanf:"lease_retrieval_k"`

	// LawRetrievalK is how many statute sections a retrieval returns.
	// Statute sections are self-contained, so fewer are needed.
	LawRetrievalK int `koanf:"law_retrieval_k"`

	// SkipLawWhenLeaseAdequate skips the law path on a "both"-scoped cycle
	// when the lease loop already met the quality threshold. Off by default:
	// comparison answers are generally better with statute evidence even when
	// the lease alone graded well.
	SkipLawWhenLeaseAdequate bool `koanf:"skip_law_when_lease_adequate"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9180
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	c.Logging.ApplyDefaults()
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.FastModel == "" {
		c.LLM.FastModel = "gpt-4o-mini"
	}
	if c.LLM.QualityModel == "" {
		c.LLM.QualityModel = "gpt-4o"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 60 * time.Second
	}
	if c.LLM.RateLimit == 0 {
		c.LLM.RateLimit = 5
	}
	if c.Embeddings.Provider == "" {
		c.Embeddings.Provider = "openai"
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "text-embedding-3-small"
	}
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = "~/.config/leaselogic/vectorstore"
	}
	c.Analysis.ApplyDefaults()
}

// ApplyDefaults sets default values for unset analysis fields.
func (c *AnalysisConfig) ApplyDefaults() {
	if c.QualityThreshold == 0 {
		c.QualityThreshold = 7
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 3
	}
	if c.LoopIterations == 0 {
		c.LoopIterations = 2
	}
	if c.LeaseRetrievalK == 0 {
		c.LeaseRetrievalK = 5
	}
	if c.LawRetrievalK == 0 {
		c.LawRetrievalK = 3
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.Analysis.QualityThreshold < 0 || c.Analysis.QualityThreshold > 10 {
		return fmt.Errorf("quality threshold %d must be in [0,10]", c.Analysis.QualityThreshold)
	}
	if c.Analysis.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", c.Analysis.MaxIterations)
	}
	if c.Analysis.LoopIterations < 1 {
		return fmt.Errorf("loop iterations must be at least 1, got %d", c.Analysis.LoopIterations)
	}
	if c.Analysis.LeaseRetrievalK < 1 || c.Analysis.LawRetrievalK < 1 {
		return fmt.Errorf("retrieval k values must be positive")
	}
	return nil
}
