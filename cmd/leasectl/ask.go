package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	askLeaseID      string
	askJurisdiction string
	askVerbose      bool
)

// askCmd runs an analysis against an ingested lease
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about an ingested lease",
	Long: `Ask a question about an ingested lease. The server classifies the
question, retrieves lease and statute evidence, and synthesizes an answer
with a confidence level.

Examples:
  # Ask about a lease clause
  leasectl ask --lease lease_abc123 "What is the late fee?"

  # Compare the lease against Texas law
  leasectl ask --lease lease_abc123 --jurisdiction texas "Is my deposit capped?"

  # Show the per-agent trace
  leasectl ask --lease lease_abc123 --verbose "Can my landlord enter unannounced?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askLeaseID, "lease", "", "source ID returned by 'leasectl ingest' (required)")
	askCmd.Flags().StringVar(&askJurisdiction, "jurisdiction", "california", "state law to compare against")
	askCmd.Flags().BoolVar(&askVerbose, "verbose", false, "print the agent trace and evidence scores")
	_ = askCmd.MarkFlagRequired("lease")
}

// AnalyzeRequest matches internal/http/server.go AnalyzeRequest
type AnalyzeRequest struct {
	Query         string `json:"query"`
	LeaseSourceID string `json:"lease_source_id"`
	Jurisdiction  string `json:"jurisdiction,omitempty"`
}

// AnalyzeResponse matches internal/orchestrator/state.go Result
type AnalyzeResponse struct {
	FinalAnswer           string   `json:"final_answer"`
	Confidence            string   `json:"confidence"`
	RetrievalQualityGrade int      `json:"retrieval_quality_grade"`
	GradeReasoning        string   `json:"grade_reasoning"`
	RequeryCount          int      `json:"requery_count"`
	QueryScope            string   `json:"query_scope"`
	LeaseScore            *float64 `json:"lease_score,omitempty"`
	LawScore              *float64 `json:"law_score,omitempty"`
	AgentLog              []string `json:"agent_log"`
}

// formatScore renders a retrieval score, or "-" for a path that never ran.
func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *score)
}

// runAsk handles the ask command
func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	reqBody := AnalyzeRequest{
		Query:         question,
		LeaseSourceID: askLeaseID,
		Jurisdiction:  askJurisdiction,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/analyze", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	// Analysis may run several LLM round trips before answering.
	client := &http.Client{
		Timeout: 5 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var analyzeResp AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&analyzeResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Println(analyzeResp.FinalAnswer)
	fmt.Printf("\nConfidence: %s (grade %d/10)\n", analyzeResp.Confidence, analyzeResp.RetrievalQualityGrade)

	if askVerbose {
		fmt.Fprintf(os.Stderr, "\nScope:         %s\n", analyzeResp.QueryScope)
		fmt.Fprintf(os.Stderr, "Requeries:     %d\n", analyzeResp.RequeryCount)
		fmt.Fprintf(os.Stderr, "Lease score:   %s\n", formatScore(analyzeResp.LeaseScore))
		fmt.Fprintf(os.Stderr, "Law score:     %s\n", formatScore(analyzeResp.LawScore))
		fmt.Fprintf(os.Stderr, "Grade reason:  %s\n", analyzeResp.GradeReasoning)
		fmt.Fprintln(os.Stderr, "\nAgent trace:")
		for _, line := range analyzeResp.AgentLog {
			fmt.Fprintf(os.Stderr, "  %s\n", line)
		}
	}

	return nil
}
