// Background worker: consumes ranking requests from Kafka and runs them.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
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
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	metricsAddr := flag.String("metrics-addr", ":9091", "listen address for /metrics and /healthz, empty disables")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: using default configuration: %v\n", err)
		cfg = config.NewDefaultConfig()
	}

	logger, err := logging.NewLogger(logging.LogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	logger = logger.Named("worker")
	logger.Info("starting molrank worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		logger.Fatal("metrics collector failed", logging.Err(err))
	}
	metrics := prometheus.NewAppMetrics(collector)

	var cache analysis.ResultCache
	if rc, err := redis.NewClient(cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, ranking cache disabled", logging.Err(err))
	} else {
		defer rc.Close()
		cache = redis.NewCache(rc, redis.CacheOptions{
			KeyPrefix:  cfg.Redis.KeyPrefix,
			DefaultTTL: cfg.Redis.DefaultTTL,
		}, logger)
	}

	// The worker cannot run without Kafka; completion events go back through
	// the same producer.
	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("kafka producer failed", logging.Err(err))
	}
	defer producer.Close()
	producer.SetMetrics(metrics)

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
		Events:    producer,
		Cache:     cache,
		Metrics:   metrics,
		Snapshot:  snapshot,
		Config:    cfg.Ranking,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("service wiring failed", logging.Err(err))
	}

	// Consumers share a group, so partitions spread across them.
	handler := analysis.NewEventHandler(svc)
	consumers := make([]*kafka.Consumer, 0, cfg.Worker.Concurrency)
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		consumer, err := kafka.NewConsumer(cfg.Kafka, handler, logger.With(logging.Int("consumer", i)))
		if err != nil {
			logger.Fatal("kafka consumer failed", logging.Err(err))
		}
		if err := consumer.Start(ctx); err != nil {
			logger.Fatal("consumer start failed", logging.Err(err))
		}
		consumers = append(consumers, consumer)
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics listener failed", logging.Err(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", logging.String("signal", sig.String()))

	var processed, failed int64
	for _, consumer := range consumers {
		if err := consumer.Close(); err != nil {
			logger.Error("consumer close failed", logging.Err(err))
		}
		p, f := consumer.Stats()
		processed += p
		failed += f
	}
	logger.Info("worker stopped",
		logging.Int64("processed", processed),
		logging.Int64("failed", failed))
}
