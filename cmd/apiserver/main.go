// API server entry point for MolRank.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/turtacn/molrank/internal/application/analysis"
	"github.com/turtacn/molrank/internal/config"
	"github.com/turtacn/molrank/internal/domain/ranking"
	"github.com/turtacn/molrank/internal/infrastructure/database/postgres"
	"github.com/turtacn/molrank/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/molrank/internal/infrastructure/database/redis"
	"github.com/turtacn/molrank/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molrank/internal/infrastructure/storage/minio"
	httpapi "github.com/turtacn/molrank/internal/interfaces/http"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	migrate := flag.Bool("migrate", false, "run schema migrations before serving")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using default configuration: %v\n", err)
		cfg = config.NewDefaultConfig()
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger, err := logging.NewLogger(logging.LogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	logger.Info("starting molrank api server", logging.Int("port", cfg.Server.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *migrate && cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(postgres.BuildDSN(cfg.Database), cfg.Database.MigrationPath); err != nil {
			logger.Fatal("migrations failed", logging.Err(err))
		}
	}

	pg, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", logging.Err(err))
	}
	defer pg.Close()

	artifacts, err := minio.NewArtifactStore(ctx, cfg.MinIO, logger)
	if err != nil {
		logger.Fatal("object storage connection failed", logging.Err(err))
	}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "molrank",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("metrics collector failed", logging.Err(err))
	}
	metrics := prometheus.NewAppMetrics(collector)

	checks := []httpapi.ReadinessCheck{
		{Name: "postgres", Check: pg.HealthCheck},
	}

	// Redis and Kafka are optional: the server degrades to uncached,
	// unannounced rankings when they are unreachable.
	var cache analysis.ResultCache
	if rc, err := redis.NewClient(cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, ranking cache disabled", logging.Err(err))
	} else {
		defer rc.Close()
		cache = redis.NewCache(rc, redis.CacheOptions{
			KeyPrefix:  cfg.Redis.KeyPrefix,
			DefaultTTL: cfg.Redis.DefaultTTL,
		}, logger)
		checks = append(checks, httpapi.ReadinessCheck{Name: "redis", Check: rc.Ping})
	}

	var events analysis.EventPublisher
	if producer, err := kafka.NewProducer(cfg.Kafka, logger); err != nil {
		logger.Warn("kafka unavailable, ranking events disabled", logging.Err(err))
	} else {
		defer producer.Close()
		producer.SetMetrics(metrics)
		events = producer
	}

	var snapshot ranking.SnapshotSink
	switch {
	case cfg.Ranking.SnapshotToObjectStore:
		snapshot = minio.NewSnapshotSink(artifacts, "snapshots/clean-matrix.csv")
	case cfg.Ranking.SnapshotDir != "":
		snapshot = ranking.FileSnapshot{Path: filepath.Join(cfg.Ranking.SnapshotDir, "clean-matrix.csv")}
	}

	svc, err := analysis.NewService(analysis.ServiceParams{
		Datasets:  repositories.NewDatasetRepository(pg.Pool(), logger),
		Rankings:  repositories.NewRankingRepository(pg.Pool(), logger),
		Artifacts: artifacts,
		Events:    events,
		Cache:     cache,
		Metrics:   metrics,
		Snapshot:  snapshot,
		Config:    cfg.Ranking,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("service wiring failed", logging.Err(err))
	}

	router := httpapi.NewRouter(httpapi.RouterParams{
		Service:        svc,
		Logger:         logger,
		Metrics:        metrics,
		MetricsHandler: collector.Handler(),
		Checks:         checks,
	})
	server := httpapi.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", logging.Err(err))
		}
	}

	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown incomplete", logging.Err(err))
	}
}
