// Package orchestrator runs the full analysis pipeline: classify the
// question, retrieve and analyze evidence from the in-scope sources, grade
// the combined evidence, and either retry with a refined query or synthesize
// the final answer.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/classify"
	"github.com/fyrsmithlabs/leaselogic/internal/config"
	"github.com/fyrsmithlabs/leaselogic/internal/corpus"
	"github.com/fyrsmithlabs/leaselogic/internal/grade"
	"github.com/fyrsmithlabs/leaselogic/internal/llm"
	"github.com/fyrsmithlabs/leaselogic/internal/refine"
	"github.com/fyrsmithlabs/leaselogic/internal/retrieval"
	"github.com/fyrsmithlabs/leaselogic/internal/synthesis"
	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

// maxCombinedDocs caps how many evidence items reach the combined grading
// step. When over budget, the most recently retrieved items are kept.
const maxCombinedDocs = 10

// Deps are the external collaborators of an Orchestrator.
type Deps struct {
	Store        vectorstore.Store
	Client       llm.Client
	FastModel    string
	QualityModel string
	Logger       *zap.Logger
}

// Orchestrator coordinates one analysis run at a time. It holds no
// per-request state and is safe for concurrent use.
type Orchestrator struct {
	store       vectorstore.Store
	client      llm.Client
	classifier  *classify.Classifier
	grader      *grade.Grader
	refiner     *refine.Refiner
	synthesizer *synthesis.Synthesizer
	config      config.AnalysisConfig
	quality     string
	logger      *zap.Logger
}

func New(deps Deps, cfg config.AnalysisConfig) *Orchestrator {
	cfg.ApplyDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:       deps.Store,
		client:      deps.Client,
		classifier:  classify.New(deps.Client, deps.FastModel, logger),
		grader:      grade.New(deps.Client, deps.FastModel, cfg.QualityThreshold, logger),
		refiner:     refine.New(deps.Client, deps.FastModel, logger),
		synthesizer: synthesis.New(deps.Client, deps.QualityModel, logger),
		config:      cfg,
		quality:     deps.QualityModel,
		logger:      logger,
	}
}

// RunAnalysis answers a question about a lease under a jurisdiction's law.
// leaseSourceID names the lease collection produced at ingest time.
//
// The run terminates in at most MaxIterations grade cycles. Iteration
// exhaustion is not an error: the best available evidence is synthesized
// with a confidence that reflects its grade. Hard errors are limited to
// missing knowledge sources and model transport failures.
func (o *Orchestrator) RunAnalysis(ctx context.Context, userQuery, leaseSourceID, jurisdiction string) (*Result, error) {
	ctx, span := otel.Tracer("leaselogic.orchestrator").Start(ctx, "orchestrator.RunAnalysis")
	defer span.End()
	start := time.Now()

	result, err := o.run(ctx, userQuery, leaseSourceID, jurisdiction)
	analysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		analysisErrors.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		return nil, err
	}

	analysesTotal.WithLabelValues(string(result.QueryScope), string(result.Confidence)).Inc()
	requeryCycles.Observe(float64(result.RequeryCount))
	span.SetAttributes(
		attribute.String("scope", string(result.QueryScope)),
		attribute.Int("grade", result.RetrievalQualityGrade),
		attribute.Int("requery_count", result.RequeryCount),
	)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, userQuery, leaseSourceID, jurisdiction string) (*Result, error) {
	state := newState(userQuery, jurisdiction)

	classified, err := o.classifier.Classify(ctx, userQuery)
	if err != nil {
		return nil, fmt.Errorf("running analysis: %w", err)
	}
	state.Scope = classified.Scope
	state.ClassificationReasoning = classified.Reasoning
	state.log("Classifier: scope=%s", classified.Scope)

	leaseLoop, lawLoop := o.buildLoops(leaseSourceID, jurisdiction)

	for {
		if err := o.runRetrievalPaths(ctx, state, leaseLoop, lawLoop); err != nil {
			return nil, err
		}

		graded, err := o.grader.Grade(ctx, state.OriginalQuery, combinedEvidence(state))
		if err != nil {
			return nil, fmt.Errorf("running analysis: %w", err)
		}
		state.CombinedGrade = graded.Grade
		state.GradeReasoning = graded.Reasoning
		state.RequeryCount++
		needsRequery := graded.Grade < o.config.QualityThreshold
		state.log("Verifier: grade=%d/10 requery=%t scope=%s", graded.Grade, needsRequery, state.Scope)

		if state.RequeryCount >= o.config.MaxIterations {
			if needsRequery {
				state.log("Supervisor: iteration budget spent, synthesizing best available")
			}
			break
		}
		if !needsRequery {
			break
		}

		state.CurrentQuery, err = o.refiner.Refine(ctx, state.OriginalQuery, graded.Reasoning, state.RequeryCount)
		if err != nil {
			return nil, fmt.Errorf("running analysis: %w", err)
		}
		state.log("Supervisor: requery %d/%d with %q", state.RequeryCount, o.config.MaxIterations, state.CurrentQuery)
	}

	synthesized, err := o.synthesizer.Synthesize(ctx, synthesis.Input{
		UserQuery:    state.OriginalQuery,
		Scope:        state.Scope,
		LeaseFinding: state.LeaseFinding,
		LawFinding:   state.LawFinding,
		Jurisdiction: jurisdictionDisplay(jurisdiction),
		QualityGrade: state.CombinedGrade,
	})
	if err != nil {
		return nil, fmt.Errorf("running analysis: %w", err)
	}
	state.FinalAnswer = synthesized.Answer
	state.Confidence = synthesized.Confidence
	state.log("Synthesizer: confidence=%s", synthesized.Confidence)

	o.logger.Info("analysis complete",
		zap.String("scope", string(state.Scope)),
		zap.Int("grade", state.CombinedGrade),
		zap.Int("requery_count", state.RequeryCount),
		zap.String("confidence", string(state.Confidence)))
	return resultFrom(state), nil
}

// buildLoops constructs the per-source corrective loops for one run.
func (o *Orchestrator) buildLoops(leaseSourceID, jurisdiction string) (*retrieval.Loop, *retrieval.Loop) {
	loopCfg := retrieval.LoopConfig{
		MaxIterations:    o.config.LoopIterations,
		QualityThreshold: o.config.QualityThreshold,
	}
	leaseAgent := retrieval.NewAgent(o.store, o.client, o.quality, retrieval.Source{
		Collection: leaseSourceID,
		Kind:       retrieval.KindLease,
		DefaultK:   o.config.LeaseRetrievalK,
	}, o.logger)
	lawAgent := retrieval.NewAgent(o.store, o.client, o.quality, retrieval.Source{
		Collection:   corpus.LawCollectionName(jurisdiction),
		Kind:         retrieval.KindLaw,
		DefaultK:     o.config.LawRetrievalK,
		Jurisdiction: jurisdictionDisplay(jurisdiction),
	}, o.logger)

	lease := retrieval.NewLoop(leaseAgent, o.grader, o.refiner, loopCfg, o.logger)
	law := retrieval.NewLoop(lawAgent, o.grader, o.refiner, loopCfg, o.logger)
	return lease, law
}

// runRetrievalPaths executes the scope-relevant source loops for one cycle.
// For scope "both" the lease path runs first; when SkipLawWhenLeaseAdequate
// is set and the lease loop already met the threshold, the law path is
// skipped for this cycle.
func (o *Orchestrator) runRetrievalPaths(ctx context.Context, state *AnalysisState, leaseLoop, lawLoop *retrieval.Loop) error {
	runLease := state.Scope == classify.ScopeLeaseOnly || state.Scope == classify.ScopeBoth
	runLaw := state.Scope == classify.ScopeLawOnly || state.Scope == classify.ScopeBoth

	if runLease {
		result, err := leaseLoop.Run(ctx, state.CurrentQuery)
		if err != nil {
			return fmt.Errorf("lease path: %w", err)
		}
		state.LeaseRan = true
		state.LeaseEvidence = result.Evidence
		state.LeaseFinding = string(result.Finding)
		state.LeaseScore = result.RetrievalScore
		state.log("LeaseAgent: grade=%d/10 iterations=%d", result.QualityGrade, result.Iterations)

		if runLaw && o.config.SkipLawWhenLeaseAdequate && result.QualityGrade >= o.config.QualityThreshold {
			state.log("Supervisor: lease evidence adequate, skipping law path this cycle")
			runLaw = false
		}
	}

	if runLaw {
		result, err := lawLoop.Run(ctx, state.CurrentQuery)
		if err != nil {
			return fmt.Errorf("law path: %w", err)
		}
		state.LawRan = true
		state.LawEvidence = result.Evidence
		state.LawFinding = string(result.Finding)
		state.LawScore = result.RetrievalScore
		state.log("LawAgent: grade=%d/10 iterations=%d", result.QualityGrade, result.Iterations)
	}
	return nil
}

// combinedEvidence gathers the evidence for combined grading. The cap keeps
// the most recently retrieved items: within a cycle the law path runs after
// the lease path, so law evidence survives first.
func combinedEvidence(state *AnalysisState) []vectorstore.SearchResult {
	combined := make([]retrieval.EvidenceItem, 0, len(state.LeaseEvidence)+len(state.LawEvidence))
	combined = append(combined, state.LeaseEvidence...)
	combined = append(combined, state.LawEvidence...)
	if len(combined) > maxCombinedDocs {
		combined = combined[len(combined)-maxCombinedDocs:]
	}
	return retrieval.ToSearchResults(combined)
}

func jurisdictionDisplay(jurisdiction string) string {
	return corpus.JurisdictionDisplay(jurisdiction)
}
