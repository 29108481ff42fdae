// Package classify determines which knowledge sources a question needs:
// the lease document, the statute corpus, or both.
package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/llm"
	"github.com/fyrsmithlabs/leaselogic/internal/prompts"
)

// Scope identifies which knowledge sources to search.
type Scope string

const (
	ScopeLeaseOnly Scope = "lease_only"
	ScopeLawOnly   Scope = "law_only"
	ScopeBoth      Scope = "both"
)

// Valid reports whether s is a recognized scope value.
func (s Scope) Valid() bool {
	switch s {
	case ScopeLeaseOnly, ScopeLawOnly, ScopeBoth:
		return true
	}
	return false
}

// Result is a classification outcome.
type Result struct {
	Scope     Scope  `json:"category"`
	Reasoning string `json:"reasoning"`
	// Fallback marks results produced by the fail-safe path rather than a
	// parsed model response.
	Fallback bool `json:"-"`
}

// fallbackResult is used whenever the model response cannot be trusted.
// Misclassification toward a narrower scope risks missing evidence, so the
// fail-safe widens the search to everything.
func fallbackResult() Result {
	return Result{
		Scope:     ScopeBoth,
		Reasoning: "classification failed, searching all sources for safety",
		Fallback:  true,
	}
}

// Classifier routes questions by scope using the fast model.
type Classifier struct {
	client llm.Client
	model  string
	logger *zap.Logger
}

func New(client llm.Client, model string, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{client: client, model: model, logger: logger}
}

// Classify determines the query scope. Model-call failures are hard errors;
// unparseable or invalid responses fall back to searching both sources.
func (c *Classifier) Classify(ctx context.Context, query string) (Result, error) {
	ctx, span := otel.Tracer("leaselogic.classify").Start(ctx, "classify.Classify")
	defer span.End()

	prompt, err := prompts.Classifier(query)
	if err != nil {
		return Result{}, fmt.Errorf("classifying query: %w", err)
	}

	response, err := c.client.Complete(ctx, llm.Request{
		Model:       c.model,
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("classifying query: %w", err)
	}

	result, ok := parse(response)
	if !ok {
		c.logger.Warn("classification response unparseable, defaulting to both",
			zap.String("response", truncate(response, 200)))
		result = fallbackResult()
	}

	span.SetAttributes(
		attribute.String("scope", string(result.Scope)),
		attribute.Bool("fallback", result.Fallback),
	)
	c.logger.Debug("classified query",
		zap.String("scope", string(result.Scope)),
		zap.String("reasoning", result.Reasoning))
	return result, nil
}

func parse(response string) (Result, bool) {
	raw := llm.ExtractJSON(response)
	if raw == "" {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Result{}, false
	}
	if !result.Scope.Valid() || result.Reasoning == "" {
		return Result{}, false
	}
	return result, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
