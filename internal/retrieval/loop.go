package retrieval

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/grade"
	"github.com/fyrsmithlabs/leaselogic/internal/refine"
)

// LoopConfig bounds one corrective loop. This iteration budget is local to
// the loop and independent of the orchestrator's global requery cap.
type LoopConfig struct {
	// MaxIterations is the maximum number of retrieval attempts.
	MaxIterations int
	// QualityThreshold is the grade at which the loop stops early.
	QualityThreshold int
}

func (c *LoopConfig) ApplyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 2
	}
	if c.QualityThreshold <= 0 {
		c.QualityThreshold = 7
	}
}

// LoopResult is the best attempt the loop produced.
type LoopResult struct {
	RunResult
	// QualityGrade and GradeReasoning describe the best attempt.
	QualityGrade   int
	GradeReasoning string
	// Iterations is the total number of retrieval attempts performed.
	Iterations int
	// FinalQuery is the query used by the last attempt.
	FinalQuery string
}

// Loop runs retrieve → grade → refine until the grade meets the threshold
// or the budget is exhausted, then returns the best-graded attempt.
type Loop struct {
	agent   *Agent
	grader  *grade.Grader
	refiner *refine.Refiner
	config  LoopConfig
	logger  *zap.Logger
}

func NewLoop(agent *Agent, grader *grade.Grader, refiner *refine.Refiner, config LoopConfig, logger *zap.Logger) *Loop {
	config.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{agent: agent, grader: grader, refiner: refiner, config: config, logger: logger}
}

// Run executes the corrective loop for the query.
//
// Grading always scores against the original query: a refined query is a
// retrieval tactic, not a change of question. Best-result tracking is
// strictly monotone, so a worse refinement can never displace an earlier,
// better attempt. Exhausting the budget is designed termination, not an
// error; the best attempt is returned regardless of its grade.
func (l *Loop) Run(ctx context.Context, query string) (*LoopResult, error) {
	ctx, span := otel.Tracer("leaselogic.retrieval").Start(ctx, "retrieval.Loop.Run")
	defer span.End()
	span.SetAttributes(attribute.String("source", l.agent.Source().Collection))

	currentQuery := query
	var best *LoopResult

	for iteration := 0; iteration < l.config.MaxIterations; iteration++ {
		l.logger.Debug("loop state", zap.String("state", "retrieving"),
			zap.Int("iteration", iteration+1), zap.String("query", currentQuery))
		result, err := l.agent.Run(ctx, currentQuery)
		if err != nil {
			return nil, err
		}

		l.logger.Debug("loop state", zap.String("state", "grading"),
			zap.Int("iteration", iteration+1))
		graded, err := l.grader.Grade(ctx, query, ToSearchResults(result.Evidence))
		if err != nil {
			return nil, fmt.Errorf("corrective loop: %w", err)
		}

		if best == nil || graded.Grade > best.QualityGrade {
			best = &LoopResult{
				RunResult:      *result,
				QualityGrade:   graded.Grade,
				GradeReasoning: graded.Reasoning,
				FinalQuery:     currentQuery,
			}
		}
		best.Iterations = iteration + 1

		if graded.Grade >= l.config.QualityThreshold {
			l.logger.Debug("loop state", zap.String("state", "done"),
				zap.Int("grade", graded.Grade), zap.Int("iterations", best.Iterations))
			span.SetAttributes(attribute.Int("best_grade", best.QualityGrade))
			return best, nil
		}

		if !graded.NeedsRequery || iteration == l.config.MaxIterations-1 {
			break
		}

		l.logger.Debug("loop state", zap.String("state", "refining"),
			zap.Int("iteration", iteration+1), zap.String("reason", graded.Reasoning))
		currentQuery, err = l.refiner.Refine(ctx, query, graded.Reasoning, iteration+1)
		if err != nil {
			return nil, fmt.Errorf("corrective loop: %w", err)
		}
	}

	l.logger.Debug("loop state", zap.String("state", "done"),
		zap.Int("best_grade", best.QualityGrade), zap.Int("iterations", best.Iterations))
	span.SetAttributes(attribute.Int("best_grade", best.QualityGrade))
	return best, nil
}
