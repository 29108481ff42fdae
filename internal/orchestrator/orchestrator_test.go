package orchestrator

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/leaselogic/internal/classify"
	"github.com/fyrsmithlabs/leaselogic/internal/config"
	"github.com/fyrsmithlabs/leaselogic/internal/corpus"
	"github.com/fyrsmithlabs/leaselogic/internal/llm"
	"github.com/fyrsmithlabs/leaselogic/internal/llm/llmtest"
	"github.com/fyrsmithlabs/leaselogic/internal/retrieval"
	"github.com/fyrsmithlabs/leaselogic/internal/synthesis"
	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

type hashEmbedder struct{ dims int }

// embed tokenizes on non-alphanumeric runs so "RENT:" and "rent" share a
// bucket; similarity between fixture queries and documents must come from
// genuine token overlap.
func (e *hashEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dims)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func (e *hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

// recordingStore tracks which collections were searched.
type recordingStore struct {
	vectorstore.Store
	mu       sync.Mutex
	searched []string
}

func (s *recordingStore) Search(ctx context.Context, collection, query string, k int, filter map[string]string) ([]vectorstore.SearchResult, error) {
	s.mu.Lock()
	s.searched = append(s.searched, collection)
	s.mu.Unlock()
	return s.Store.Search(ctx, collection, query, k, filter)
}

func (s *recordingStore) searchedCollections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.searched))
	copy(out, s.searched)
	return out
}

// responder scripts the model side of a whole analysis run by keying on
// prompt content.
type responder struct {
	mu           sync.Mutex
	classifier   string
	grades       []string
	gradeIdx     int
	leaseFinding string
	lawFinding   string
	answer       string
}

func (r *responder) respond(req llm.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := req.Prompt
	switch {
	case strings.Contains(p, "Classify this lease-related question"):
		return r.classifier, nil
	case strings.Contains(p, "grading the quality of retrieved documents"):
		if r.gradeIdx < len(r.grades)-1 {
			r.gradeIdx++
			return r.grades[r.gradeIdx-1], nil
		}
		return r.grades[len(r.grades)-1], nil
	case strings.Contains(p, "improving a search query"):
		return "rephrased search query", nil
	case strings.Contains(p, "analyzing a residential lease agreement"):
		return r.leaseFinding, nil
	case strings.Contains(p, "legal expert on"):
		return r.lawFinding, nil
	default:
		return r.answer, nil
	}
}

const testLease = `RESIDENTIAL LEASE AGREEMENT

RENT: Tenant shall pay $2,000 per month, due on the first day of each month.

SECURITY DEPOSIT: Tenant shall pay a security deposit of $4,000 upon signing.

LATE FEES: A late charge of $300 applies if rent is not received by the 5th.

ENTRY: Landlord may enter the premises with 24 hours written notice.
`

type fixture struct {
	orch    *Orchestrator
	store   *recordingStore
	leaseID string
	client  *llmtest.Client
}

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		QualityThreshold: 7,
		MaxIterations:    3,
		LoopIterations:   2,
		LeaseRetrievalK:  5,
		LawRetrievalK:    3,
	}
}

func newFixture(t *testing.T, r *responder) *fixture {
	return newFixtureWithConfig(t, r, testAnalysisConfig())
}

func newFixtureWithConfig(t *testing.T, r *responder, cfg config.AnalysisConfig) *fixture {
	t.Helper()

	inner, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{}, &hashEmbedder{dims: 128}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })
	store := &recordingStore{Store: inner}

	ing := corpus.NewIngestor(inner, nil)
	leaseID, _, err := ing.IngestLease(context.Background(), testLease, nil)
	require.NoError(t, err)
	_, _, err = ing.LoadStatutes(context.Background(), "california")
	require.NoError(t, err)

	client := llmtest.NewClient()
	client.RespondFunc = r.respond

	orch := New(Deps{
		Store:        store,
		Client:       client,
		FastModel:    "fast-model",
		QualityModel: "quality-model",
	}, cfg)
	return &fixture{orch: orch, store: store, leaseID: leaseID, client: client}
}

func TestLeaseOnlyHighQuality(t *testing.T) {
	r := &responder{
		classifier:   `{"category": "lease_only", "reasoning": "asks what the lease says"}`,
		grades:       []string{`{"grade": 9, "reasoning": "rent clause found", "needs_requery": false}`},
		leaseFinding: "The lease sets rent at $2,000 per month, due on the first.",
		answer:       "Your monthly rent is $2,000, due on the first of each month.",
	}
	f := newFixture(t, r)

	result, err := f.orch.RunAnalysis(context.Background(), "What is my monthly rent?", f.leaseID, "california")
	require.NoError(t, err)

	assert.Contains(t, result.FinalAnswer, "$2,000")
	assert.Equal(t, synthesis.ConfidenceHigh, result.Confidence)
	assert.Equal(t, classify.ScopeLeaseOnly, result.QueryScope)
	assert.Equal(t, 9, result.RetrievalQualityGrade)
	assert.Equal(t, 1, result.RequeryCount)
	require.NotNil(t, result.LeaseScore)
	assert.Greater(t, *result.LeaseScore, 0.0)
	assert.Nil(t, result.LawScore)
	assert.NotEmpty(t, result.AgentLog)

	// Routing conformance: the law collection must never be touched.
	for _, c := range f.store.searchedCollections() {
		assert.Equal(t, f.leaseID, c)
	}
}

func TestLawOnlyDepositLimit(t *testing.T) {
	r := &responder{
		classifier:   `{"category": "law_only", "reasoning": "asks about state law"}`,
		grades:       []string{`{"grade": 8, "reasoning": "1950.5 directly answers", "needs_requery": false}`},
		lawFinding:   "Civil Code 1950.5 caps unfurnished deposits at two months' rent.",
		answer:       "California Civil Code 1950.5 limits the deposit to two months' rent for unfurnished units.",
	}
	f := newFixture(t, r)

	result, err := f.orch.RunAnalysis(context.Background(), "What is the maximum security deposit allowed by law?", f.leaseID, "california")
	require.NoError(t, err)

	assert.Contains(t, result.FinalAnswer, "two months")
	assert.Equal(t, classify.ScopeLawOnly, result.QueryScope)
	require.NotNil(t, result.LawScore)
	assert.Greater(t, *result.LawScore, 0.0)
	assert.Nil(t, result.LeaseScore)
	assert.Empty(t, result.LeaseFinding)

	// An unsearched path must serialize as absent, not as a zero score.
	payload, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(payload), "lease_score")
	assert.Contains(t, string(payload), "law_score")

	for _, c := range f.store.searchedCollections() {
		assert.Equal(t, "california_laws", c, "lease collection must never be touched")
	}
}

func TestComparisonFindsConflict(t *testing.T) {
	r := &responder{
		classifier:   `{"category": "both", "reasoning": "compares lease against law"}`,
		grades:       []string{`{"grade": 8, "reasoning": "both sources specific", "needs_requery": false}`},
		leaseFinding: "The lease charges a flat $300 late fee.",
		lawFinding:   "California courts find late fees above 5-6% of rent potentially unreasonable.",
		answer: "Your lease's $300 late fee is 15% of your $2,000 rent, well above the 5-6% " +
			"range California courts consider reasonable, so it is likely unenforceable.",
	}
	f := newFixture(t, r)

	result, err := f.orch.RunAnalysis(context.Background(), "Is my $300 late fee legal?", f.leaseID, "california")
	require.NoError(t, err)

	assert.Contains(t, result.FinalAnswer, "$300")
	assert.Contains(t, result.FinalAnswer, "5-6%")
	assert.Equal(t, classify.ScopeBoth, result.QueryScope)
	assert.NotEmpty(t, result.LeaseFinding)
	assert.NotEmpty(t, result.LawFinding)
	require.NotNil(t, result.LeaseScore)
	require.NotNil(t, result.LawScore)
	assert.Greater(t, *result.LeaseScore, 0.0)
	assert.Greater(t, *result.LawScore, 0.0)

	searched := f.store.searchedCollections()
	assert.Contains(t, searched, f.leaseID)
	assert.Contains(t, searched, "california_laws")
}

func TestSkipLawWhenLeaseAdequate(t *testing.T) {
	r := &responder{
		classifier:   `{"category": "both", "reasoning": "compares lease against law"}`,
		grades:       []string{`{"grade": 9, "reasoning": "lease clause fully answers", "needs_requery": false}`},
		leaseFinding: "The lease charges a flat $300 late fee, due after the 5th.",
		answer:       "Your lease sets a $300 late fee when rent is not received by the 5th.",
	}
	cfg := testAnalysisConfig()
	cfg.SkipLawWhenLeaseAdequate = true
	f := newFixtureWithConfig(t, r, cfg)

	result, err := f.orch.RunAnalysis(context.Background(), "Is my $300 late fee legal?", f.leaseID, "california")
	require.NoError(t, err)

	assert.Equal(t, classify.ScopeBoth, result.QueryScope)
	assert.NotEmpty(t, result.FinalAnswer)
	require.NotNil(t, result.LeaseScore)
	assert.Greater(t, *result.LeaseScore, 0.0)
	assert.Nil(t, result.LawScore, "a skipped path reports no score")
	assert.Empty(t, result.LawFinding)

	// With the lease loop grading above threshold, the law collection must
	// never be searched despite the "both" scope.
	for _, c := range f.store.searchedCollections() {
		assert.Equal(t, f.leaseID, c)
	}
}

func TestExhaustionTerminatesWithBestEffort(t *testing.T) {
	r := &responder{
		classifier:   `{"category": "lease_only", "reasoning": "lease question"}`,
		grades:       []string{`{"grade": 3, "reasoning": "nothing relevant", "needs_requery": true}`},
		leaseFinding: "The lease does not address this topic.",
		answer:       "The lease does not appear to address this; no definitive answer is possible.",
	}
	f := newFixture(t, r)

	result, err := f.orch.RunAnalysis(context.Background(), "something entirely unrelated to leases", f.leaseID, "california")
	require.NoError(t, err, "exhaustion is designed termination, not an error")

	assert.Equal(t, 3, result.RequeryCount, "stops exactly at the iteration cap")
	assert.Equal(t, synthesis.ConfidenceLow, result.Confidence)
	assert.NotEmpty(t, result.FinalAnswer, "best-effort answer is still produced")
	assert.Equal(t, 3, result.RetrievalQualityGrade)
}

func TestClassifierFailSafeCompletesRun(t *testing.T) {
	r := &responder{
		classifier:   "I am not JSON at all",
		grades:       []string{`{"grade": 8, "reasoning": "fine", "needs_requery": false}`},
		leaseFinding: "lease finding",
		lawFinding:   "law finding",
		answer:       "a complete answer",
	}
	f := newFixture(t, r)

	result, err := f.orch.RunAnalysis(context.Background(), "Is my deposit too high?", f.leaseID, "california")
	require.NoError(t, err)

	assert.Equal(t, classify.ScopeBoth, result.QueryScope, "classification fails closed to both")
	assert.NotEmpty(t, result.FinalAnswer)

	searched := f.store.searchedCollections()
	assert.Contains(t, searched, f.leaseID)
	assert.Contains(t, searched, "california_laws")
}

func TestUnknownLeaseSourceIsHardError(t *testing.T) {
	r := &responder{
		classifier: `{"category": "lease_only", "reasoning": "lease question"}`,
		grades:     []string{`{"grade": 9, "reasoning": "fine", "needs_requery": false}`},
	}
	f := newFixture(t, r)

	result, err := f.orch.RunAnalysis(context.Background(), "What is my rent?", "lease_does_not_exist", "california")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, retrieval.ErrSourceNotFound)
}

func TestRequeryUsesRefinedQuery(t *testing.T) {
	r := &responder{
		classifier: `{"category": "lease_only", "reasoning": "lease question"}`,
		grades: []string{
			// Loop grade then combined grade for cycle 1, both poor; cycle 2
			// improves and completes. With LoopIterations 2 the inner loop
			// also grades its refined attempt.
			`{"grade": 3, "reasoning": "too vague", "needs_requery": true}`,
			`{"grade": 3, "reasoning": "still vague", "needs_requery": true}`,
			`{"grade": 3, "reasoning": "combined vague", "needs_requery": true}`,
			`{"grade": 8, "reasoning": "expansion worked", "needs_requery": false}`,
		},
		leaseFinding: "finding",
		answer:       "answer",
	}
	f := newFixture(t, r)

	result, err := f.orch.RunAnalysis(context.Background(), "What about my deposit?", f.leaseID, "california")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RequeryCount)

	// The second cycle's retrieval prompts must carry the refined query, not
	// the original.
	var sawRefined bool
	for _, req := range f.client.Requests() {
		if strings.Contains(req.Prompt, "analyzing a residential lease agreement") &&
			strings.Contains(req.Prompt, "security deposit refund return") {
			sawRefined = true
		}
	}
	assert.True(t, sawRefined, "refined query should drive later retrieval")
}
