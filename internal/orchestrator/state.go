package orchestrator

import (
	"fmt"

	"github.com/fyrsmithlabs/leaselogic/internal/classify"
	"github.com/fyrsmithlabs/leaselogic/internal/retrieval"
	"github.com/fyrsmithlabs/leaselogic/internal/synthesis"
)

// AnalysisState is the accumulator for one analysis run. It is owned by a
// single RunAnalysis call, never shared, and discarded when the run ends.
type AnalysisState struct {
	OriginalQuery string
	CurrentQuery  string
	Jurisdiction  string

	Scope                   classify.Scope
	ClassificationReasoning string

	// LeaseRan and LawRan record whether each path executed at least once,
	// so a never-searched path serializes as null rather than a zero score.
	LeaseRan      bool
	LeaseEvidence []retrieval.EvidenceItem
	LeaseFinding  string
	LeaseScore    float64

	LawRan      bool
	LawEvidence []retrieval.EvidenceItem
	LawFinding  string
	LawScore    float64

	CombinedGrade  int
	GradeReasoning string

	// RequeryCount increments exactly once per grade cycle and never
	// decreases.
	RequeryCount int

	FinalAnswer string
	Confidence  synthesis.Confidence

	AgentLog []string
}

func newState(userQuery, jurisdiction string) *AnalysisState {
	return &AnalysisState{
		OriginalQuery: userQuery,
		CurrentQuery:  userQuery,
		Jurisdiction:  jurisdiction,
	}
}

func (s *AnalysisState) log(format string, args ...any) {
	s.AgentLog = append(s.AgentLog, fmt.Sprintf(format, args...))
}

// Result is the outcome of one analysis run.
type Result struct {
	FinalAnswer           string               `json:"final_answer"`
	Confidence            synthesis.Confidence `json:"confidence"`
	RetrievalQualityGrade int                  `json:"retrieval_quality_grade"`
	GradeReasoning        string               `json:"grade_reasoning"`
	RequeryCount          int                  `json:"requery_count"`
	QueryScope            classify.Scope       `json:"query_scope"`
	LeaseScore            *float64             `json:"lease_score,omitempty"`
	LawScore              *float64             `json:"law_score,omitempty"`
	LeaseFinding          string               `json:"lease_finding,omitempty"`
	LawFinding            string               `json:"law_finding,omitempty"`
	AgentLog              []string             `json:"agent_log"`
}

func resultFrom(s *AnalysisState) *Result {
	r := &Result{
		FinalAnswer:           s.FinalAnswer,
		Confidence:            s.Confidence,
		RetrievalQualityGrade: s.CombinedGrade,
		GradeReasoning:        s.GradeReasoning,
		RequeryCount:          s.RequeryCount,
		QueryScope:            s.Scope,
		LeaseFinding:          s.LeaseFinding,
		LawFinding:            s.LawFinding,
		AgentLog:              s.AgentLog,
	}
	if s.LeaseRan {
		score := s.LeaseScore
		r.LeaseScore = &score
	}
	if s.LawRan {
		score := s.LawScore
		r.LawScore = &score
	}
	return r
}
