// Package http provides the HTTP API for leaselogicd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/corpus"
	"github.com/fyrsmithlabs/leaselogic/internal/orchestrator"
	"github.com/fyrsmithlabs/leaselogic/internal/retrieval"
	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

// defaultJurisdiction is used when an analyze request omits one.
const defaultJurisdiction = "california"

// Analyzer runs one complete analysis. Satisfied by orchestrator.Orchestrator.
type Analyzer interface {
	RunAnalysis(ctx context.Context, userQuery, leaseSourceID, jurisdiction string) (*orchestrator.Result, error)
}

// Ingestor loads leases and statutes. Satisfied by corpus.Ingestor.
type Ingestor interface {
	IngestLease(ctx context.Context, text string, metadata map[string]string) (string, int, error)
	LoadStatutes(ctx context.Context, jurisdiction string) (string, int, error)
}

// Server provides HTTP endpoints for lease ingestion and analysis.
type Server struct {
	echo     *echo.Echo
	analyzer Analyzer
	ingestor Ingestor
	store    vectorstore.Store
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server. The store may be nil, in which case
// the status endpoint reports counts as unavailable.
func NewServer(analyzer Analyzer, ingestor Ingestor, store vectorstore.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9180,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		analyzer: analyzer,
		ingestor: ingestor,
		store:    store,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/leases", s.handleIngestLease)
	v1.POST("/analyze", s.handleAnalyze)
	v1.GET("/status", s.handleStatus)
}

// IngestRequest is the request body for POST /api/v1/leases. Text is the
// extracted lease text; PDF extraction happens upstream of this API.
type IngestRequest struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IngestResponse is the response body for POST /api/v1/leases.
type IngestResponse struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`
}

// AnalyzeRequest is the request body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Query         string `json:"query"`
	LeaseSourceID string `json:"lease_source_id"`
	Jurisdiction  string `json:"jurisdiction,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	leaseChunks, statutes := CountFromCollections(c.Request().Context(), s.store)

	return c.JSON(http.StatusOK, StatusResponse{
		Status: "ok",
		Counts: StatusCounts{
			LeaseChunks: leaseChunks,
			Statutes:    statutes,
		},
		Jurisdictions: corpus.Jurisdictions(),
	})
}

func (s *Server) handleIngestLease(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid ingest request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text field is required")
	}

	sourceID, chunks, err := s.ingestor.IngestLease(c.Request().Context(), req.Text, req.Metadata)
	if err != nil {
		s.logger.Error("lease ingestion failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "ingestion failed")
	}

	return c.JSON(http.StatusCreated, IngestResponse{SourceID: sourceID, Chunks: chunks})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid analyze request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}
	if req.LeaseSourceID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "lease_source_id field is required")
	}
	if req.Jurisdiction == "" {
		req.Jurisdiction = defaultJurisdiction
	}

	ctx := c.Request().Context()

	// Statute loading is idempotent, so this just guarantees the law
	// collection exists before the analysis routes to it.
	if _, _, err := s.ingestor.LoadStatutes(ctx, req.Jurisdiction); err != nil {
		if errors.Is(err, corpus.ErrUnknownJurisdiction) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		s.logger.Error("statute loading failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "statute loading failed")
	}

	result, err := s.analyzer.RunAnalysis(ctx, req.Query, req.LeaseSourceID, req.Jurisdiction)
	if err != nil {
		if errors.Is(err, retrieval.ErrSourceNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "unknown lease source: "+req.LeaseSourceID)
		}
		s.logger.Error("analysis failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "analysis failed")
	}

	return c.JSON(http.StatusOK, result)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
