// Package main implements the leasectl CLI for manual operations against the
// leaselogicd HTTP server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the leaselogicd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "leasectl",
	Short: "CLI for leaselogicd HTTP server operations",
	Long: `leasectl is a command-line interface for interacting with the leaselogicd HTTP server.
It provides commands for ingesting lease documents and asking questions about them.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9180", "leaselogicd server URL")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(healthCmd)
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check leaselogicd server health",
	Long: `Check the health status of the leaselogicd HTTP server.

Examples:
  # Check health
  leasectl health

  # Check health on a different server
  leasectl health --server http://localhost:8080`,
	RunE: runHealth,
}

// statusCmd shows stored corpus counts
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored lease and statute counts",
	RunE:  runStatus,
}

// HealthResponse matches internal/http/server.go HealthResponse
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse matches internal/http/types.go StatusResponse
type StatusResponse struct {
	Status string `json:"status"`
	Counts struct {
		LeaseChunks int `json:"lease_chunks"`
		Statutes    int `json:"statutes"`
	} `json:"counts"`
	Jurisdictions []string `json:"jurisdictions"`
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/health", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var healthResp HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", healthResp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)

	return nil
}

// runStatus handles the status command
func runStatus(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/status", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	var statusResp StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Status:        %s\n", statusResp.Status)
	fmt.Printf("Lease chunks:  %s\n", formatCount(statusResp.Counts.LeaseChunks))
	fmt.Printf("Statutes:      %s\n", formatCount(statusResp.Counts.Statutes))
	fmt.Printf("Jurisdictions: %v\n", statusResp.Jurisdictions)

	return nil
}

func formatCount(n int) string {
	if n < 0 {
		return "unknown"
	}
	return fmt.Sprintf("%d", n)
}

// statusError turns a non-2xx response into an error carrying the body.
func statusError(resp *http.Response) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
	}
	return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
}
