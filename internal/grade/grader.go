// Package grade scores retrieval quality so the loop can decide between
// retrying with a refined query and proceeding to synthesis.
package grade

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/llm"
	"github.com/fyrsmithlabs/leaselogic/internal/prompts"
	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

const (
	// maxDocsToGrade caps how many retrieved documents reach the grader.
	maxDocsToGrade = 10
	// maxDocChars truncates each document before grading.
	maxDocChars = 400
	// maxCombinedChars truncates the combined document block.
	maxCombinedChars = 2000
)

// Result is a grading outcome on the 0-10 scale.
type Result struct {
	Grade        int    `json:"grade"`
	Reasoning    string `json:"reasoning"`
	NeedsRequery bool   `json:"needs_requery"`
	// Fallback marks results produced by the fail-safe path.
	Fallback bool `json:"-"`
}

// fallbackResult is used when the grader response cannot be parsed. Unlike
// classification, grading fails open: a neutral grade without requery keeps
// an unreliable grader from trapping the loop in pointless retries.
func fallbackResult() Result {
	return Result{
		Grade:        5,
		Reasoning:    "unable to parse grader response - assuming medium quality",
		NeedsRequery: false,
		Fallback:     true,
	}
}

// Grader scores how well retrieved documents answer a question.
type Grader struct {
	client    llm.Client
	model     string
	threshold int
	logger    *zap.Logger
}

// New creates a grader. threshold is the grade below which the model is told
// to request a requery.
func New(client llm.Client, model string, threshold int, logger *zap.Logger) *Grader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Grader{client: client, model: model, threshold: threshold, logger: logger}
}

// Grade scores the documents against the query. Out-of-range grades are
// clamped to [0, 10]. Model-call failures are hard errors; unparseable
// responses fall back to a neutral grade.
func (g *Grader) Grade(ctx context.Context, query string, docs []vectorstore.SearchResult) (Result, error) {
	ctx, span := otel.Tracer("leaselogic.grade").Start(ctx, "grade.Grade")
	defer span.End()

	prompt, err := promptFor(query, docs, g.threshold)
	if err != nil {
		return Result{}, fmt.Errorf("grading retrieval: %w", err)
	}

	response, err := g.client.Complete(ctx, llm.Request{
		Model:       g.model,
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		return Result{}, fmt.Errorf("grading retrieval: %w", err)
	}

	result, ok := parse(response)
	if !ok {
		g.logger.Warn("grader response unparseable, assuming medium quality",
			zap.String("response", truncate(response, 200)))
		result = fallbackResult()
	}

	span.SetAttributes(
		attribute.Int("grade", result.Grade),
		attribute.Bool("needs_requery", result.NeedsRequery),
		attribute.Bool("fallback", result.Fallback),
	)
	g.logger.Debug("graded retrieval",
		zap.Int("grade", result.Grade),
		zap.Bool("needs_requery", result.NeedsRequery),
		zap.Int("docs", len(docs)))
	return result, nil
}

func promptFor(query string, docs []vectorstore.SearchResult, threshold int) (string, error) {
	return prompts.Grader(query, FormatDocs(docs), threshold)
}

func parse(response string) (Result, bool) {
	raw := llm.ExtractJSON(response)
	if raw == "" {
		return Result{}, false
	}
	// Grade arrives as a JSON number; decode loosely then validate.
	var loose struct {
		Grade        *float64 `json:"grade"`
		Reasoning    string   `json:"reasoning"`
		NeedsRequery *bool    `json:"needs_requery"`
	}
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return Result{}, false
	}
	if loose.Grade == nil || loose.NeedsRequery == nil || loose.Reasoning == "" {
		return Result{}, false
	}
	return Result{
		Grade:        clamp(int(*loose.Grade), 0, 10),
		Reasoning:    loose.Reasoning,
		NeedsRequery: *loose.NeedsRequery,
	}, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FormatDocs renders retrieved documents for the grading prompt. At most
// maxDocsToGrade documents are included, each truncated to maxDocChars, and
// the whole block is capped at maxCombinedChars.
func FormatDocs(docs []vectorstore.SearchResult) string {
	if len(docs) > maxDocsToGrade {
		docs = docs[:maxDocsToGrade]
	}

	formatted := make([]string, 0, len(docs))
	for i, doc := range docs {
		text := doc.Content
		if len(text) > maxDocChars {
			text = text[:maxDocChars] + "..."
		}
		section := doc.Metadata["section"]
		if section == "" {
			section = "unknown"
		}
		formatted = append(formatted, fmt.Sprintf(
			"Document %d:\nSource: %s\nRelevance score: %.3f\nContent: %s",
			i+1, section, doc.Score, text))
	}

	combined := strings.Join(formatted, "\n\n")
	if len(combined) > maxCombinedChars {
		combined = combined[:maxCombinedChars] + "\n\n[Additional documents truncated...]"
	}
	return combined
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
