// Package llm provides the language-model client used by the analysis
// components. Classification, grading, refinement, analysis, and synthesis
// all reduce to one synchronous prompt-in, text-out call.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider returns no content.
var ErrEmptyResponse = errors.New("llm returned empty response")

// Request is a single completion request.
type Request struct {
	// Model is the provider model name. Callers pick between the configured
	// fast and quality models.
	Model string

	// Prompt is the fully rendered prompt text.
	Prompt string

	// Temperature controls sampling. 0 for deterministic calls
	// (classification, grading, analysis), higher for creative ones.
	Temperature float64

	// MaxTokens caps the response length. 0 uses the provider default.
	MaxTokens int
}

// Client is a synchronous language-model client.
//
// A transport or provider failure is returned as an error and treated as a
// hard failure by the caller; components that need a fail-safe default on
// malformed CONTENT (not transport) implement it themselves.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
