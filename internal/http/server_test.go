package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/corpus"
	"github.com/fyrsmithlabs/leaselogic/internal/orchestrator"
	"github.com/fyrsmithlabs/leaselogic/internal/retrieval"
	"github.com/fyrsmithlabs/leaselogic/internal/synthesis"
)

// fakeAnalyzer returns a canned result, or an error keyed on the lease source.
type fakeAnalyzer struct {
	result    *orchestrator.Result
	err       error
	lastQuery string
}

func (f *fakeAnalyzer) RunAnalysis(_ context.Context, userQuery, _, _ string) (*orchestrator.Result, error) {
	f.lastQuery = userQuery
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeIngestor records calls and maps jurisdictions the way corpus.Ingestor does.
type fakeIngestor struct {
	ingestErr     error
	loadedLaws    []string
	lastMetadata  map[string]string
	chunksPerCall int
}

func (f *fakeIngestor) IngestLease(_ context.Context, text string, metadata map[string]string) (string, int, error) {
	if f.ingestErr != nil {
		return "", 0, f.ingestErr
	}
	f.lastMetadata = metadata
	if f.chunksPerCall == 0 {
		f.chunksPerCall = 3
	}
	return "lease_abc123", f.chunksPerCall, nil
}

func (f *fakeIngestor) LoadStatutes(_ context.Context, jurisdiction string) (string, int, error) {
	if _, err := corpus.StatutesFor(jurisdiction); err != nil {
		return "", 0, err
	}
	f.loadedLaws = append(f.loadedLaws, jurisdiction)
	return corpus.LawCollectionName(jurisdiction), 0, nil
}

func defaultResult() *orchestrator.Result {
	return &orchestrator.Result{
		FinalAnswer:           "The lease requires a $300 late fee after the 5th.",
		Confidence:            synthesis.ConfidenceHigh,
		RetrievalQualityGrade: 9,
		QueryScope:            "lease_only",
		LeaseFinding:          "Late fee of $300 applies after the 5th.",
	}
}

func TestNewServer(t *testing.T) {
	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{
			Host: "localhost",
			Port: 9180,
		}

		server, err := NewServer(&fakeAnalyzer{result: defaultResult()}, &fakeIngestor{}, nil, zap.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.echo)
		assert.Equal(t, cfg, server.config)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(&fakeAnalyzer{result: defaultResult()}, &fakeIngestor{}, nil, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9180, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(&fakeAnalyzer{}, &fakeIngestor{}, nil, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when analyzer is nil", func(t *testing.T) {
		_, err := NewServer(nil, &fakeIngestor{}, nil, zap.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "analyzer cannot be nil")
	})

	t.Run("returns error when ingestor is nil", func(t *testing.T) {
		_, err := NewServer(&fakeAnalyzer{}, nil, nil, zap.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "ingestor cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	server, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	err := json.Unmarshal(rec.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleStatus(t *testing.T) {
	server, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()

	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	err := json.Unmarshal(rec.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	// No store wired in tests, so counts are unavailable.
	assert.Equal(t, -1, resp.Counts.LeaseChunks)
	assert.Equal(t, -1, resp.Counts.Statutes)
	assert.Contains(t, resp.Jurisdictions, "california")
	assert.Contains(t, resp.Jurisdictions, "texas")
}

func TestHandleIngestLease(t *testing.T) {
	t.Run("ingests lease text", func(t *testing.T) {
		server, _, ingestor := setupTestServer(t)

		reqBody := IngestRequest{
			Text:     "RENT: Tenant shall pay $2,400 per month.",
			Metadata: map[string]string{"filename": "unit4b.pdf"},
		}

		rec := postJSON(t, server, "/api/v1/leases", reqBody)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp IngestResponse
		err := json.Unmarshal(rec.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Equal(t, "lease_abc123", resp.SourceID)
		assert.Equal(t, 3, resp.Chunks)
		assert.Equal(t, "unit4b.pdf", ingestor.lastMetadata["filename"])
	})

	t.Run("rejects empty text", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/leases", IngestRequest{Text: ""})

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]interface{}
		err := json.Unmarshal(rec.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Contains(t, resp["message"], "text field is required")
	})

	t.Run("handles invalid json", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/leases", bytes.NewReader([]byte("invalid json")))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("reports ingestion failure", func(t *testing.T) {
		server, _, ingestor := setupTestServer(t)
		ingestor.ingestErr = fmt.Errorf("store unavailable")

		rec := postJSON(t, server, "/api/v1/leases", IngestRequest{Text: "RENT: $2,400 monthly."})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleAnalyze(t *testing.T) {
	t.Run("returns full analysis result", func(t *testing.T) {
		server, analyzer, ingestor := setupTestServer(t)

		reqBody := AnalyzeRequest{
			Query:         "What is the late fee?",
			LeaseSourceID: "lease_abc123",
			Jurisdiction:  "california",
		}

		rec := postJSON(t, server, "/api/v1/analyze", reqBody)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp orchestrator.Result
		err := json.Unmarshal(rec.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Equal(t, "The lease requires a $300 late fee after the 5th.", resp.FinalAnswer)
		assert.Equal(t, synthesis.ConfidenceHigh, resp.Confidence)
		assert.Equal(t, 9, resp.RetrievalQualityGrade)

		assert.Equal(t, "What is the late fee?", analyzer.lastQuery)
		assert.Equal(t, []string{"california"}, ingestor.loadedLaws)
	})

	t.Run("defaults jurisdiction to california", func(t *testing.T) {
		server, _, ingestor := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{
			Query:         "Can my landlord enter without notice?",
			LeaseSourceID: "lease_abc123",
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"california"}, ingestor.loadedLaws)
	})

	t.Run("rejects missing query", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{LeaseSourceID: "lease_abc123"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects missing lease source", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{Query: "What is the late fee?"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]interface{}
		err := json.Unmarshal(rec.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Contains(t, resp["message"], "lease_source_id field is required")
	})

	t.Run("unknown jurisdiction returns 404", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{
			Query:         "What is the late fee?",
			LeaseSourceID: "lease_abc123",
			Jurisdiction:  "atlantis",
		})

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown lease source returns 404", func(t *testing.T) {
		server, analyzer, _ := setupTestServer(t)
		analyzer.err = fmt.Errorf("%w: %q", retrieval.ErrSourceNotFound, "lease_missing")

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{
			Query:         "What is the late fee?",
			LeaseSourceID: "lease_missing",
		})

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var resp map[string]interface{}
		err := json.Unmarshal(rec.Body.Bytes(), &resp)
		require.NoError(t, err)
		assert.Contains(t, resp["message"], "lease_missing")
	})

	t.Run("analysis failure returns 500", func(t *testing.T) {
		server, analyzer, _ := setupTestServer(t)
		analyzer.err = fmt.Errorf("model unavailable")

		rec := postJSON(t, server, "/api/v1/analyze", AnalyzeRequest{
			Query:         "What is the late fee?",
			LeaseSourceID: "lease_abc123",
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestServerLifecycle(t *testing.T) {
	t.Run("starts and shuts down gracefully", func(t *testing.T) {
		cfg := &Config{
			Host: "localhost",
			Port: 0, // Use random available port
		}

		server, err := NewServer(&fakeAnalyzer{result: defaultResult()}, &fakeIngestor{}, nil, zap.NewNop(), cfg)
		require.NoError(t, err)

		errChan := make(chan error, 1)
		go func() {
			errChan <- server.Start()
		}()

		// Give server time to start
		time.Sleep(100 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err = server.Shutdown(ctx)
		assert.NoError(t, err)

		select {
		case err := <-errChan:
			// Server should shut down cleanly (http.ErrServerClosed is expected)
			assert.True(t, err == nil || err == http.ErrServerClosed)
		case <-time.After(6 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("adds request ID to response", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()

		server.echo.ServeHTTP(rec, req)

		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})

	t.Run("recovers from panic", func(t *testing.T) {
		server, _, _ := setupTestServer(t)

		server.echo.GET("/panic", func(c echo.Context) error {
			panic("test panic")
		})

		req := httptest.NewRequest(http.MethodGet, "/panic", nil)
		rec := httptest.NewRecorder()

		assert.NotPanics(t, func() {
			server.echo.ServeHTTP(rec, req)
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

// setupTestServer creates a test server backed by fake analyzer and ingestor.
func setupTestServer(t *testing.T) (*Server, *fakeAnalyzer, *fakeIngestor) {
	t.Helper()

	analyzer := &fakeAnalyzer{result: defaultResult()}
	ingestor := &fakeIngestor{}

	cfg := &Config{
		Host: "localhost",
		Port: 9180,
	}

	server, err := NewServer(analyzer, ingestor, nil, zap.NewNop(), cfg)
	require.NoError(t, err)

	return server, analyzer, ingestor
}

func postJSON(t *testing.T, server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	server.echo.ServeHTTP(rec, req)
	return rec
}
