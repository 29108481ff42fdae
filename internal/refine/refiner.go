// Package refine rewrites queries after a low-quality retrieval. The
// strategy escalates: cheap keyword expansion first, simplification second,
// and a model rephrase only when the heuristics have been exhausted.
package refine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/llm"
	"github.com/fyrsmithlabs/leaselogic/internal/prompts"
)

// maxRephraseLen bounds accepted model rephrases. A response longer than
// this is likely an explanation rather than a query, so the heuristic
// simplification is used instead.
const maxRephraseLen = 200

// expansions widens a query with synonymous legal vocabulary on the first
// retry. Keys are matched as substrings of the lowercased query, in order.
var expansions = []struct{ key, expansion string }{
	{"late fee", "late fee late payment penalty charges"},
	{"entry", "entry access landlord entry notice"},
	{"deposit", "security deposit refund return"},
	{"rent", "rent rental payment monthly"},
	{"break lease", "early termination breach lease"},
	{"eviction", "eviction termination notice unlawful detainer"},
}

// simplifications reduces a query to its core concept on the second retry.
var simplifications = []struct{ key, simplified string }{
	{"late fee", "late fee"},
	{"entry", "entry"},
	{"deposit", "deposit"},
	{"rent", "rent"},
	{"pets", "pets"},
	{"utilities", "utilities"},
	{"maintenance", "maintenance repair"},
}

// stopWords are dropped by the fallback simplification when no core concept
// matches.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "my": true,
	"me": true, "can": true, "does": true, "do": true, "what": true,
	"when": true, "how": true, "about": true, "for": true, "of": true,
	"in": true, "to": true, "say": true, "says": true,
}

// Refiner rewrites queries between retrieval iterations.
type Refiner struct {
	client llm.Client
	model  string
	logger *zap.Logger
}

func New(client llm.Client, model string, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{client: client, model: model, logger: logger}
}

// Refine produces the next query to try. The original query, never the
// previously refined one, is the input: refinements must not compound.
// iteration starts at 1 for the first retry.
func (r *Refiner) Refine(ctx context.Context, originalQuery, failureReason string, iteration int) (string, error) {
	var refined string
	switch {
	case iteration <= 1:
		refined = expand(originalQuery)
	case iteration == 2:
		refined = simplify(originalQuery)
	default:
		rephrased, err := r.rephrase(ctx, originalQuery, failureReason, iteration)
		if err != nil {
			return "", err
		}
		refined = rephrased
	}

	r.logger.Debug("refined query",
		zap.Int("iteration", iteration),
		zap.String("original", originalQuery),
		zap.String("refined", refined))
	return refined, nil
}

func expand(query string) string {
	lower := strings.ToLower(query)
	for _, e := range expansions {
		if strings.Contains(lower, e.key) {
			return e.expansion
		}
	}
	return query + " terms conditions clause"
}

func simplify(query string) string {
	lower := strings.ToLower(query)
	for _, s := range simplifications {
		if strings.Contains(lower, s.key) {
			return s.simplified
		}
	}

	// No core concept matched: strip stop words and keep the first few
	// content tokens.
	kept := make([]string, 0, 5)
	for _, tok := range strings.Fields(lower) {
		if stopWords[strings.Trim(tok, "?.,!")] {
			continue
		}
		kept = append(kept, strings.Trim(tok, "?.,!"))
		if len(kept) == 5 {
			break
		}
	}
	if len(kept) == 0 {
		return query
	}
	return strings.Join(kept, " ")
}

// rephrase asks the model for a complete reformulation. Unusable responses
// fall back to the heuristic simplification so the loop always gets a query.
func (r *Refiner) rephrase(ctx context.Context, originalQuery, failureReason string, iteration int) (string, error) {
	prompt, err := prompts.Refinement(originalQuery, failureReason, iteration)
	if err != nil {
		return "", fmt.Errorf("refining query: %w", err)
	}

	response, err := r.client.Complete(ctx, llm.Request{
		Model:       r.model,
		Prompt:      prompt,
		Temperature: 0.3,
	})
	if err != nil {
		// A refinement is advisory: losing the model here should not kill
		// the whole loop when a heuristic query is available.
		r.logger.Warn("rephrase call failed, falling back to simplification", zap.Error(err))
		return simplify(originalQuery), nil
	}

	rephrased := firstLine(response)
	if rephrased == "" || len(rephrased) > maxRephraseLen {
		r.logger.Warn("rephrase unusable, falling back to simplification",
			zap.Int("length", len(rephrased)))
		return simplify(originalQuery), nil
	}
	return rephrased, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(strings.Trim(s, `"`))
}
