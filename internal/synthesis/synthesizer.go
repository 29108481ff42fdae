// Package synthesis composes the final answer from per-source findings.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/classify"
	"github.com/fyrsmithlabs/leaselogic/internal/llm"
	"github.com/fyrsmithlabs/leaselogic/internal/prompts"
)

// Confidence expresses how much the final answer can be trusted, derived
// purely from the final retrieval quality grade.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// ConfidenceFor maps a combined quality grade to a confidence level.
func ConfidenceFor(grade int) Confidence {
	switch {
	case grade >= 8:
		return ConfidenceHigh
	case grade >= 6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Input carries everything synthesis needs. Findings may be empty when the
// corresponding source was out of scope.
type Input struct {
	UserQuery    string
	Scope        classify.Scope
	LeaseFinding string
	LawFinding   string
	// Jurisdiction is the state display name for law prompts.
	Jurisdiction string
	// QualityGrade is the final combined grade, used for confidence.
	QualityGrade int
}

// Result is the synthesized answer.
type Result struct {
	Answer     string
	Confidence Confidence
}

// Synthesizer generates final answers with the quality model.
type Synthesizer struct {
	client llm.Client
	model  string
	logger *zap.Logger
}

func New(client llm.Client, model string, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{client: client, model: model, logger: logger}
}

// Synthesize produces the final answer. The prompt is selected by scope;
// confidence is deterministic in the quality grade and never model-derived.
func (s *Synthesizer) Synthesize(ctx context.Context, in Input) (Result, error) {
	ctx, span := otel.Tracer("leaselogic.synthesis").Start(ctx, "synthesis.Synthesize")
	defer span.End()
	span.SetAttributes(attribute.String("scope", string(in.Scope)))

	prompt, err := promptFor(in)
	if err != nil {
		return Result{}, fmt.Errorf("synthesizing answer: %w", err)
	}

	response, err := s.client.Complete(ctx, llm.Request{
		Model:       s.model,
		Prompt:      prompt,
		Temperature: 0.3,
	})
	if err != nil {
		return Result{}, fmt.Errorf("synthesizing answer: %w", err)
	}

	result := Result{
		Answer:     strings.TrimSpace(response),
		Confidence: ConfidenceFor(in.QualityGrade),
	}
	s.logger.Debug("synthesized answer",
		zap.String("scope", string(in.Scope)),
		zap.String("confidence", string(result.Confidence)),
		zap.Int("quality_grade", in.QualityGrade))
	return result, nil
}

func promptFor(in Input) (string, error) {
	lease := in.LeaseFinding
	if lease == "" {
		lease = "No lease information found."
	}
	law := in.LawFinding
	if law == "" {
		law = "No law information found."
	}

	switch in.Scope {
	case classify.ScopeLeaseOnly:
		return prompts.SynthesisLeaseOnly(in.UserQuery, lease)
	case classify.ScopeLawOnly:
		return prompts.SynthesisLawOnly(in.UserQuery, law, in.Jurisdiction)
	default:
		return prompts.SynthesisComparison(in.UserQuery, lease, law, in.Jurisdiction)
	}
}
