// Package embeddings provides embedding generation via langchaingo.
//
// The OpenAI provider also works against any OpenAI-compatible endpoint
// (set BaseURL) such as a local TEI server.
package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder
	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is the provider type. Only "openai" is supported.
	Provider string
	// Model is the embedding model name.
	Model string
	// APIKey is the provider API key.
	APIKey string
	// BaseURL overrides the API endpoint (OpenAI-compatible servers).
	BaseURL string
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return newOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown embeddings provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// openaiProvider wraps langchaingo's embedder.
type openaiProvider struct {
	embedder *embeddings.EmbedderImpl
}

func newOpenAIProvider(cfg Config) (Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token; OpenAI-compatible local servers ignore it.
		apiKey = "placeholder"
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithToken(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &openaiProvider{embedder: embedder}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *openaiProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *openaiProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

// Close releases resources. The HTTP-backed provider holds none.
func (p *openaiProvider) Close() error { return nil }

var _ Provider = (*openaiProvider)(nil)
