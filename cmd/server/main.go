package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vanshika/comptree/backend/internal/config"
	"github.com/vanshika/comptree/backend/internal/graph"
	"github.com/vanshika/comptree/backend/internal/logging"
	"github.com/vanshika/comptree/backend/internal/repository"
	"github.com/vanshika/comptree/backend/internal/server"
	"github.com/vanshika/comptree/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		logger.Error("failed to load policy", "error", err, "path", cfg.PolicyFile)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	graphClient, err := buildGraphClient(ctx, cfg)
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
	metrics := service.NewMetrics("")

	networkService, err := service.NewNetworkService(logger, repo, policy.Rewards, policy.Withdrawal, service.Options{
		MaxDepth:     cfg.Network.MaxDepth,
		FetchTimeout: cfg.Network.FetchTimeout,
		FetchWorkers: cfg.Network.FetchWorkers,
		Metrics:      metrics,
	})
	if err != nil {
		logger.Error("failed to create network service", "error", err)
		os.Exit(1)
	}

	if root := cfg.Network.RootID; root != "" {
		if _, err := networkService.Recompute(ctx, root); err != nil {
			logger.Warn("initial network load failed", "root", root, "error", err)
		}
	}

	refresher, err := service.NewRefresher(logger, networkService, cfg.Network.RefreshSchedule, cfg.Network.FetchTimeout*4)
	if err != nil {
		logger.Error("failed to schedule refresher", "error", err)
		os.Exit(1)
	}
	refresher.Start()

	var registry *prometheus.Registry
	if cfg.HTTP.MetricsEnabled {
		registry = metrics.Registry()
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health: server.HealthChecks{
			"graph": server.GraphHealthService{Client: graphClient},
		},
		API:              server.NewAPIHandlers(logger, networkService),
		Metrics:          registry,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped unexpectedly", "error", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := refresher.Stop(stopCtx); err != nil {
		logger.Warn("refresher did not stop cleanly", "error", err)
	}
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}
	return graph.NewNeo4jClient(ctx, graph.OptionsFromConfig(cfg.Graph, cfg.Network.FetchTimeout))
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
