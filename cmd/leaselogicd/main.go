// Leaselogicd is the lease analysis daemon.
//
// This binary starts the leaselogic HTTP server with full service
// initialization: the embedded vector store, the embedding provider, the
// LLM client, and the analysis orchestrator. Statute collections for every
// known jurisdiction are loaded at startup so that analyze requests never
// race statute ingestion.
//
// Configuration is loaded from an optional YAML file and overridden by
// LEASELOGIC_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	leaselogicd
//
//	# Configure via file and environment
//	LEASELOGIC_SERVER_PORT=9180 leaselogicd --config /etc/leaselogic/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/leaselogic/internal/config"
	"github.com/fyrsmithlabs/leaselogic/internal/corpus"
	"github.com/fyrsmithlabs/leaselogic/internal/embeddings"
	httpserver "github.com/fyrsmithlabs/leaselogic/internal/http"
	"github.com/fyrsmithlabs/leaselogic/internal/llm"
	"github.com/fyrsmithlabs/leaselogic/internal/logging"
	"github.com/fyrsmithlabs/leaselogic/internal/orchestrator"
	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  leaselogicd           Start the lease analysis daemon\n")
			fmt.Fprintf(os.Stderr, "  leaselogicd version   Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("leaselogicd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the leaselogic server and blocks until context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize logger
//  3. Open the embedded vector store with the embedding provider
//  4. Create the LLM client
//  5. Preload statute collections
//  6. Wire the orchestrator and HTTP server
//  7. Perform graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting leaselogicd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	embedder, err := embeddings.NewProvider(embeddings.Config{
		Provider: cfg.Embeddings.Provider,
		Model:    cfg.Embeddings.Model,
		APIKey:   cfg.Embeddings.APIKey.Value(),
		BaseURL:  cfg.Embeddings.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}
	defer embedder.Close()

	logger.Info("Embedding provider initialized",
		zap.String("provider", cfg.Embeddings.Provider),
		zap.String("model", cfg.Embeddings.Model))

	storePath, err := expandHome(cfg.VectorStore.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve vector store path: %w", err)
	}
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		Path:     storePath,
		Compress: cfg.VectorStore.Compress,
	}, embedder, logger)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer store.Close()

	logger.Info("Vector store opened", zap.String("path", storePath))

	client, err := llm.NewClient(llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey.Value(),
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   cfg.LLM.Timeout,
		RateLimit: cfg.LLM.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	logger.Info("LLM client initialized",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("fast_model", cfg.LLM.FastModel),
		zap.String("quality_model", cfg.LLM.QualityModel))

	ingestor := corpus.NewIngestor(store, logger)
	for _, jurisdiction := range corpus.Jurisdictions() {
		collection, count, err := ingestor.LoadStatutes(ctx, jurisdiction)
		if err != nil {
			return fmt.Errorf("failed to load %s statutes: %w", jurisdiction, err)
		}
		if count > 0 {
			logger.Info("Statutes loaded",
				zap.String("collection", collection),
				zap.Int("count", count))
		}
	}

	orch := orchestrator.New(orchestrator.Deps{
		Store:        store,
		Client:       client,
		FastModel:    cfg.LLM.FastModel,
		QualityModel: cfg.LLM.QualityModel,
		Logger:       logger,
	}, cfg.Analysis)

	srv, err := httpserver.NewServer(orch, ingestor, store, logger, &httpserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info("Server configured",
		zap.String("health_endpoint", fmt.Sprintf("http://%s:%d/health", cfg.Server.Host, cfg.Server.Port)),
		zap.String("metrics_endpoint", "/metrics"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// expandHome expands a leading "~" to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
