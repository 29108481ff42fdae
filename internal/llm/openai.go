package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// openaiClient implements Client using langchaingo's OpenAI binding.
type openaiClient struct {
	llm     *openai.LLM
	limiter *rate.Limiter
}

// newOpenAIClient creates an OpenAI-backed client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key required")
	}

	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return &openaiClient{
		llm:     client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), defaultBurst),
	}, nil
}

// Complete generates a completion for the request.
func (c *openaiClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	callOpts := []llms.CallOption{
		llms.WithModel(req.Model),
		llms.WithTemperature(req.Temperature),
	}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}

	content, err := llms.GenerateFromSinglePrompt(ctx, c.llm, req.Prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
