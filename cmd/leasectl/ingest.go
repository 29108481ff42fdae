package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// ingestCmd uploads lease text to the server
var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a lease document from a text file or stdin",
	Long: `Ingest a lease document into the leaselogicd server.

The input must be plain text. The server chunks the document by lease
section and stores it as a searchable source; the returned source ID is
what 'leasectl ask' expects.

Examples:
  # Ingest a lease
  leasectl ingest lease.txt

  # Ingest from stdin
  pdftotext lease.pdf - | leasectl ingest -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

// IngestRequest matches internal/http/server.go IngestRequest
type IngestRequest struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResponse matches internal/http/server.go IngestResponse
type IngestResponse struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
}

// runIngest handles the ingest command
func runIngest(cmd *cobra.Command, args []string) error {
	var content []byte
	var err error

	metadata := map[string]string{}

	if len(args) == 0 || args[0] == "-" {
		content, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		metadata["filename"] = filepath.Base(args[0])
	}

	if len(content) == 0 {
		return fmt.Errorf("no lease text to ingest")
	}

	reqBody := IngestRequest{
		Text:     string(content),
		Metadata: metadata,
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/leases", serverURL)
	httpReq, err := http.NewRequest("POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}

	var ingestResp IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ingestResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Source ID: %s\n", ingestResp.SourceID)
	fmt.Printf("Chunks:    %d\n", ingestResp.Chunks)

	return nil
}
