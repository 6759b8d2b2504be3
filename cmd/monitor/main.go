// Package main implements the pipeline monitor: on a fixed
// interval it samples Kafka topic lag, graph health, and data-integrity
// thresholds, logging a structured snapshot (and, if configured, an
// unhealthy verdict can be wired to an alerting webhook by the operator).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
	"github.com/archon-intelligence/enrichment-pipeline/engine/validate"
	"github.com/archon-intelligence/enrichment-pipeline/engine/vector"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/config"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/metrics"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// pollInterval is how often the monitor samples pipeline health. There is
// no dedicated env var for it in pkg/config; SWEEPER_INTERVAL's cadence is
// close enough in spirit (a periodic background rescan) to reuse directly
// rather than add a single-purpose knob.
const pollInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("monitor exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := neo4j.NewDriverWithContext(cfg.Graph.URI, neo4j.BasicAuth(cfg.Graph.Username, cfg.Graph.Password, ""))
	if err != nil {
		return err
	}
	defer driver.Close(ctx)
	graphStore := graph.New(driver)

	vectorStore, err := vector.New(cfg.Vector.GRPCAddr, cfg.Vector.Collection)
	if err != nil {
		return err
	}
	defer vectorStore.Close()

	reg := metrics.New()
	lagGauge := reg.Gauge("enrichment_topic_lag", "unread messages on the enrichment topic for the consumer group")
	densityGauge := reg.Gauge("graph_relationship_density_x1000", "relationship density * 1000, integer-scaled for the gauge")
	reg.ServeAsync(cfg.MetricsPort)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	sample := func() {
		sampleCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		lag, err := kafkautil.TopicLag(sampleCtx, cfg.Kafka.BootstrapServers, cfg.Kafka.GroupID, cfg.Kafka.EnrichmentTopic)
		if err != nil {
			logger.Warn("lag sample failed", "error", err)
		} else {
			lagGauge.Set(lag)
			logger.Info("topic lag", "topic", cfg.Kafka.EnrichmentTopic, "lag", lag)
		}

		health, err := validate.CheckGraphHealth(sampleCtx, graphStore, validate.DefaultGraphHealthThresholds)
		if err != nil {
			logger.Warn("graph health sample failed", "error", err)
		} else {
			densityGauge.Set(int64(health.RelationshipDensity * 1000))
			logger.Info("graph health", "density", health.RelationshipDensity, "coverage", health.TreeCoverage,
				"orphans", health.OrphanCount, "concepts", health.TotalConcepts, "themes", health.TotalThemes,
				"entities", health.TotalEntities, "exit", health.Exit)
		}

		integrity, err := validate.CheckDataIntegrity(sampleCtx, graphStore, vectorStore, cfg.Vector.Dimensions, validate.DefaultIntegrityThresholds)
		if err != nil {
			logger.Warn("data integrity sample failed", "error", err)
		} else {
			logger.Info("data integrity", "healthy_components", integrity.HealthyCount, "exit", integrity.Exit)
		}
	}

	sample()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sample()
		}
	}
}
