package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vanshika/comptree/backend/internal/config"
	"github.com/vanshika/comptree/backend/internal/generator"
	"github.com/vanshika/comptree/backend/internal/graph"
	"github.com/vanshika/comptree/backend/internal/logging"
	"github.com/vanshika/comptree/backend/internal/repository"
	"github.com/vanshika/comptree/backend/internal/service"
)

var (
	errMissingDataset = errors.New("dataset not found")
)

func main() {
	var (
		datasetDir  = flag.String("dataset-dir", "./data", "Directory containing network.json")
		datasetPath = flag.String("dataset", "", "Path to a network dataset (overrides dataset-dir)")
		workers     = flag.Int("workers", 4, "Number of concurrent workers for ingestion")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "ingest")

	path, err := resolveDatasetPath(*datasetDir, *datasetPath)
	if err != nil {
		logger.Error("dataset resolution failed", "error", err)
		os.Exit(1)
	}

	dataset, err := generator.ReadDataset(path)
	if err != nil {
		logger.Error("failed to load dataset", "error", err, "path", path)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	repo := repository.New(graphClient)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	ingestor := service.NewBulkIngestor(repo, *workers, nil)

	start := time.Now()
	logger.Info("ingesting members", "count", len(dataset.Members), "root", dataset.RootID, "workers", *workers)
	if err := ingestor.IngestMembers(ctx, dataset.Members); err != nil {
		var taskErr *service.TaskError
		if errors.As(err, &taskErr) {
			logger.Error("member ingestion finished with failures", "failures", len(taskErr.Errors), "error", err)
		} else {
			logger.Error("member ingestion failed", "error", err)
		}
		os.Exit(1)
	}

	logger.Info("ingestion complete", "duration", time.Since(start).String(), "members", len(dataset.Members), "root", dataset.RootID)
}

func resolveDatasetPath(baseDir, explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("stat %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	path := filepath.Join(baseDir, generator.DatasetFile)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", errMissingDataset, path)
	}
	return path, nil
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for ingestion")
	}
	client, err := graph.NewNeo4jClient(ctx, graph.OptionsFromConfig(cfg.Graph, cfg.Network.FetchTimeout))
	if err != nil {
		return nil, err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
