// Package main implements one replica of the enrichment consumer fleet: a
// bounded worker pool over engine/consumer.Processor, wiring every stage
// dependency the six-stage pipeline needs. Several replicas run
// concurrently, each with a distinct INSTANCE_ID so the sharded embedding
// pool in pkg/config.Embedding routes each replica to its own backend.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/consumer"
	"github.com/archon-intelligence/enrichment-pipeline/engine/dlq"
	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/enrich"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
	"github.com/archon-intelligence/enrichment-pipeline/engine/status"
	"github.com/archon-intelligence/enrichment-pipeline/engine/vector"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/config"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/embedding"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/fn"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/intelclient"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/metrics"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/resilience"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("consumer exited with error", "err", err)
		os.Exit(1)
	}
}

// indexedHashLookup adapts GraphStore.GetFile to enrich.IndexedHashLookup,
// the same lookup cmd/producer's documentLookup uses, so the vector stage
// can skip re-embedding unchanged content. A lookup
// miss is treated as "never indexed" rather than a hard error, and so is a
// File whose enrichment has not completed (its content_hash is the one the
// producer's skeleton write just set, not one that was embedded).
func indexedHashLookup(g *graph.GraphStore) enrich.IndexedHashLookup {
	return func(ctx context.Context, req domain.EnrichmentRequestEvent) (string, error) {
		file, err := g.GetFile(ctx, req.FilePath)
		if err != nil || file.EnrichmentStatus != string(domain.EnrichmentCompleted) {
			return "", nil
		}
		return file.ContentHash, nil
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Graph.URI, neo4j.BasicAuth(cfg.Graph.Username, cfg.Graph.Password, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)
	graphStore := graph.New(neo4jDriver)

	vectorStore, err := vector.New(cfg.Vector.GRPCAddr, cfg.Vector.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()
	if err := vectorStore.EnsureCollection(ctx, cfg.Vector.Dimensions); err != nil {
		return fmt.Errorf("vector collection: %w", err)
	}
	if err := vectorStore.CheckDimensions(ctx, cfg.Vector.Dimensions); err != nil {
		return fmt.Errorf("vector dimension check: %w", err)
	}

	backends := make(map[string]embedding.Backend, len(cfg.Embedding.BaseURLs))
	for instanceID, baseURL := range cfg.Embedding.BaseURLs {
		backends[instanceID] = embedding.NewHTTPBackend(baseURL, cfg.Embedding.Model, cfg.Embedding.ConnectTimeout, cfg.Embedding.ReadTimeout)
	}
	embedPool := embedding.NewPool(backends, embedding.PoolOpts{
		Dimensions:    cfg.Vector.Dimensions,
		MaxConcurrent: cfg.Embedding.MaxConcurrent,
		Retries:       cfg.Embedding.Retries,
	})

	intelSvc := intelclient.New(cfg.Intelligence.BaseURL, cfg.Intelligence.ConnectTimeout, cfg.Intelligence.ReadTimeout, cfg.Intelligence.WriteTimeout)
	intelBreaker := resilience.NewBreaker(resilience.BreakerOpts{
		FailThreshold: cfg.Breaker.FailureThreshold,
		Timeout:       cfg.Breaker.RecoveryTimeout,
		HalfOpenMax:   cfg.Breaker.HalfOpenMax,
	})

	producer := kafkautil.NewProducer(cfg.Kafka.BootstrapServers)
	defer producer.Close()

	var tracker status.Tracker
	if cfg.RedisAddr != "" {
		redisTracker := status.NewRedisTracker(cfg.RedisAddr, cfg.Timeouts.StatusTrackerTTL)
		defer redisTracker.Close()
		tracker = redisTracker
	} else {
		tracker = status.NewMemoryTracker(ctx, cfg.Timeouts.StatusTrackerTTL, time.Minute)
	}

	var cacheClient *goredis.Client
	if cfg.RedisAddr != "" {
		cacheClient = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer cacheClient.Close()
	}

	runner := enrich.NewRunner(enrich.Deps{
		Intelligence: intelSvc,
		IntelligenceOpts: enrich.IntelligenceOpts{
			Retry: fn.RetryOpts{
				MaxAttempts: cfg.Retry.MaxAttempts,
				InitialWait: cfg.Retry.BaseDelay,
				MaxWait:     cfg.Retry.MaxDelay,
				Jitter:      cfg.Retry.JitterPct > 0,
			},
			Breaker: intelBreaker,
		},
		Validate: enrich.ValidateOpts{
			MaxContentBytes:  cfg.MaxContentBytes,
			AllowedBasePaths: cfg.AllowedBasePaths,
		},
		Vector: enrich.VectorDeps{
			Embeddings: embedPool,
			Store:      vectorStore,
			InstanceID: cfg.Embedding.InstanceID,
		},
		Graph: enrich.GraphDeps{Store: graphStore},
		Cache: enrich.CacheDeps{
			Client: cacheClient,
			TTL:    cfg.Timeouts.StatusTrackerTTL,
		},
		Tracker:       tracker,
		IndexedHash:   indexedHashLookup(graphStore),
		PipelineTotal: cfg.Timeouts.PipelineTotal,
	})

	hostname, _ := os.Hostname()
	source := event.EnvelopeSource{Service: "enrichment-consumer", InstanceID: cfg.Embedding.InstanceID, Hostname: hostname}

	dlqWriter := dlq.NewWriter(producer, cfg.Kafka.DLQTopic, source)

	reg := metrics.New()
	reg.CollectRuntime("consumer_"+cfg.Embedding.InstanceID, 15*time.Second)
	reg.ServeAsync(cfg.MetricsPort)

	reader := kafkautil.NewReader(cfg.Kafka.BootstrapServers, cfg.Kafka.GroupID, cfg.Kafka.EnrichmentTopic)
	defer reader.Close()

	processor := consumer.New(consumer.Deps{
		Reader:         reader,
		Runner:         runner,
		DLQWriter:      dlqWriter,
		Producer:       producer,
		RetryTopic:     cfg.Kafka.EnrichmentTopic,
		Workers:        cfg.MaxConcurrentWork,
		MaxRetryCount:  cfg.Retry.MaxAttempts,
		MaxRate:        cfg.MaxProcessingRate,
		IntelBreaker:   intelBreaker,
		Log:            logger,
		CompletedTopic: cfg.Kafka.CompletedTopic,
		Source:         source,
		Metrics:        reg,
	})

	logger.Info("consumer starting", "instance_id", cfg.Embedding.InstanceID, "workers", cfg.MaxConcurrentWork)
	errCh := make(chan error, 1)
	go func() { errCh <- processor.Run(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining in-flight work")
		select {
		case err := <-errCh:
			return err
		case <-time.After(cfg.Timeouts.ShutdownGrace):
			logger.Warn("shutdown grace period exceeded")
			return nil
		}
	}
}
