package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestRunIngestPostsToLeases(t *testing.T) {
	var gotPath string
	var gotBody IngestRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(IngestResponse{SourceID: "lease_xyz", Chunks: 4})
	}))
	defer ts.Close()

	serverURL = ts.URL

	tmp := filepath.Join(t.TempDir(), "lease.txt")
	if err := os.WriteFile(tmp, []byte("RENT: Tenant shall pay $2,400 per month."), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runIngest(ingestCmd, []string{tmp}); err != nil {
		t.Fatalf("runIngest: %v", err)
	}

	if gotPath != "/api/v1/leases" {
		t.Errorf("posted to %q, want /api/v1/leases", gotPath)
	}
	if gotBody.Text == "" {
		t.Error("request text is empty")
	}
	if gotBody.Metadata["filename"] != "lease.txt" {
		t.Errorf("filename metadata = %q, want lease.txt", gotBody.Metadata["filename"])
	}
}

func TestRunAskPostsToAnalyze(t *testing.T) {
	var gotBody AnalyzeRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/analyze" {
			t.Errorf("posted to %q, want /api/v1/analyze", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(AnalyzeResponse{
			FinalAnswer: "The late fee is $300.",
			Confidence:  "HIGH",
		})
	}))
	defer ts.Close()

	serverURL = ts.URL
	askLeaseID = "lease_xyz"
	askJurisdiction = "texas"

	if err := runAsk(askCmd, []string{"What", "is", "the", "late", "fee?"}); err != nil {
		t.Fatalf("runAsk: %v", err)
	}

	if gotBody.Query != "What is the late fee?" {
		t.Errorf("query = %q, want joined arguments", gotBody.Query)
	}
	if gotBody.LeaseSourceID != "lease_xyz" {
		t.Errorf("lease_source_id = %q", gotBody.LeaseSourceID)
	}
	if gotBody.Jurisdiction != "texas" {
		t.Errorf("jurisdiction = %q", gotBody.Jurisdiction)
	}
}

func TestRunAskSurfacesServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unknown lease source: lease_missing"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	serverURL = ts.URL
	askLeaseID = "lease_missing"
	askJurisdiction = "california"

	err := runAsk(askCmd, []string{"anything"})
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestRunHealth(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("requested %q, want /health", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
	}))
	defer ts.Close()

	serverURL = ts.URL

	if err := runHealth(healthCmd, nil); err != nil {
		t.Fatalf("runHealth: %v", err)
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		name  string
		input int
		want  string
	}{
		{name: "negative means unknown", input: -1, want: "unknown"},
		{name: "zero", input: 0, want: "0"},
		{name: "positive", input: 42, want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatCount(tt.input); got != tt.want {
				t.Errorf("formatCount(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
