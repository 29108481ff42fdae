// Package retrieval turns a knowledge source into graded, analyzed evidence.
// An Agent performs one retrieve-and-analyze pass; a Loop wraps an Agent
// with grading and query refinement until quality is sufficient or the
// iteration budget is spent.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/llm"
	"github.com/fyrsmithlabs/leaselogic/internal/prompts"
	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

// ErrSourceNotFound is returned when a knowledge source's collection does
// not exist. This is a hard error: "the source has no matching evidence" and
// "the source does not exist" must never be conflated.
var ErrSourceNotFound = errors.New("knowledge source not found")

// EvidenceItem is one retrieved chunk. Immutable once produced.
type EvidenceItem struct {
	Text     string
	Metadata map[string]string
	Score    float64
}

// Finding is a natural-language analysis of an evidence set.
type Finding string

// Kind selects the analysis prompt for a source.
type Kind string

const (
	KindLease Kind = "lease"
	KindLaw   Kind = "law"
)

// Source describes one knowledge source.
type Source struct {
	// Collection is the vector store collection name.
	Collection string
	// Kind selects lease or law analysis.
	Kind Kind
	// DefaultK is the result count used when the caller passes k <= 0.
	DefaultK int
	// Jurisdiction is the display name used in law analysis prompts,
	// e.g. "California". Ignored for lease sources.
	Jurisdiction string
}

// Agent retrieves evidence from one source and analyzes it with the quality
// model.
type Agent struct {
	store  vectorstore.Store
	client llm.Client
	model  string
	source Source
	logger *zap.Logger
}

func NewAgent(store vectorstore.Store, client llm.Client, model string, source Source, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{store: store, client: client, model: model, source: source, logger: logger}
}

// Source returns the agent's source descriptor.
func (a *Agent) Source() Source { return a.source }

// Retrieve searches the source for the query. k <= 0 uses the source
// default. A missing collection is reported as ErrSourceNotFound.
func (a *Agent) Retrieve(ctx context.Context, query string, k int) ([]EvidenceItem, error) {
	if k <= 0 {
		k = a.source.DefaultK
	}

	results, err := a.store.Search(ctx, a.source.Collection, query, k, nil)
	if err != nil {
		if errors.Is(err, vectorstore.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%w: %q: %w", ErrSourceNotFound, a.source.Collection, err)
		}
		return nil, fmt.Errorf("retrieving from %q: %w", a.source.Collection, err)
	}

	evidence := make([]EvidenceItem, 0, len(results))
	for _, r := range results {
		meta := make(map[string]string, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			meta[k] = v
		}
		meta["source"] = a.source.Collection
		evidence = append(evidence, EvidenceItem{
			Text:     r.Content,
			Metadata: meta,
			Score:    r.Score,
		})
	}
	return evidence, nil
}

// Analyze produces a finding over the evidence. The prompt instructs the
// model to quote and cite only what appears in the evidence and to state
// silence explicitly.
func (a *Agent) Analyze(ctx context.Context, query string, evidence []EvidenceItem) (Finding, error) {
	contextBlock := formatEvidence(evidence)

	var prompt string
	var err error
	switch a.source.Kind {
	case KindLaw:
		prompt, err = prompts.LawAnalyzer(a.source.Jurisdiction, contextBlock, query)
	default:
		prompt, err = prompts.LeaseAnalyzer(contextBlock, query)
	}
	if err != nil {
		return "", fmt.Errorf("analyzing evidence: %w", err)
	}

	response, err := a.client.Complete(ctx, llm.Request{
		Model:       a.model,
		Prompt:      prompt,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("analyzing evidence from %q: %w", a.source.Collection, err)
	}
	return Finding(strings.TrimSpace(response)), nil
}

// RunResult is one retrieve-and-analyze pass.
type RunResult struct {
	Evidence []EvidenceItem
	Finding  Finding
	// RetrievalScore is the mean similarity of the retrieved evidence.
	RetrievalScore float64
}

// Run retrieves with the source's default k and analyzes the result.
func (a *Agent) Run(ctx context.Context, query string) (*RunResult, error) {
	ctx, span := otel.Tracer("leaselogic.retrieval").Start(ctx, "retrieval.Agent.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", a.source.Collection),
		attribute.String("kind", string(a.source.Kind)),
	)

	evidence, err := a.Retrieve(ctx, query, 0)
	if err != nil {
		return nil, err
	}

	finding, err := a.Analyze(ctx, query, evidence)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		Evidence:       evidence,
		Finding:        finding,
		RetrievalScore: meanScore(evidence),
	}
	a.logger.Debug("retrieval pass complete",
		zap.String("source", a.source.Collection),
		zap.Int("evidence", len(evidence)),
		zap.Float64("retrieval_score", result.RetrievalScore))
	return result, nil
}

func meanScore(evidence []EvidenceItem) float64 {
	if len(evidence) == 0 {
		return 0
	}
	var sum float64
	for _, e := range evidence {
		sum += e.Score
	}
	return sum / float64(len(evidence))
}

func formatEvidence(evidence []EvidenceItem) string {
	if len(evidence) == 0 {
		return "(no matching documents were found)"
	}
	parts := make([]string, 0, len(evidence))
	for i, e := range evidence {
		section := e.Metadata["section"]
		if section == "" {
			section = "unknown"
		}
		parts = append(parts, fmt.Sprintf("[%d] (section: %s)\n%s", i+1, section, e.Text))
	}
	return strings.Join(parts, "\n\n")
}

// ToSearchResults adapts evidence for the grader.
func ToSearchResults(evidence []EvidenceItem) []vectorstore.SearchResult {
	out := make([]vectorstore.SearchResult, 0, len(evidence))
	for _, e := range evidence {
		out = append(out, vectorstore.SearchResult{
			Content:  e.Text,
			Score:    e.Score,
			Metadata: e.Metadata,
		})
	}
	return out
}
