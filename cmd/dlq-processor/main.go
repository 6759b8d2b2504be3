// Package main implements the DLQ processor: a low-volume
// consumer over the dead-letter topic that replays every entry back onto the
// main enrichment topic, using the failure category recorded when the entry
// was written: data_quality entries are committed without being replayed,
// every other category is republished.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/archon-intelligence/enrichment-pipeline/engine/dlq"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/engine/status"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/config"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
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
		logger.Error("dlq-processor exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	producer := kafkautil.NewProducer(cfg.Kafka.BootstrapServers)
	defer producer.Close()

	var tracker status.Tracker
	if cfg.RedisAddr != "" {
		redisTracker := status.NewRedisTracker(cfg.RedisAddr, cfg.Timeouts.StatusTrackerTTL)
		defer redisTracker.Close()
		tracker = redisTracker
	}

	hostname, _ := os.Hostname()
	source := event.EnvelopeSource{Service: "dlq-processor", InstanceID: cfg.Embedding.InstanceID, Hostname: hostname}
	processor := dlq.NewProcessor(producer, cfg.Kafka.EnrichmentTopic, tracker, source)

	reader := kafkautil.NewReader(cfg.Kafka.BootstrapServers, cfg.Kafka.GroupID+"-dlq", cfg.Kafka.DLQTopic)
	defer reader.Close()

	consumer := dlq.NewConsumer(reader, processor, logger)
	logger.Info("dlq-processor starting", "topic", cfg.Kafka.DLQTopic)
	return consumer.Run(ctx)
}
