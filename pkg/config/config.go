// Package config centralizes every timeout, retry, and concurrency knob the
// pipeline reads, each with a documented default, a validated range, and an
// environment-variable override. No subsystem reads os.Getenv directly;
// every env var is funneled through Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Kafka holds broker connectivity and topic naming.
type Kafka struct {
	BootstrapServers []string
	EnrichmentTopic  string
	DLQTopic         string
	CompletedTopic   string
	ProgressTopic    string
	GroupID          string
	MaxPollRecords   int
}

// Graph holds Bolt connection settings (Memgraph/Neo4j wire-compatible).
type Graph struct {
	URI      string
	Username string
	Password string
	PoolSize int
}

// Vector holds Qdrant connection settings.
type Vector struct {
	GRPCAddr   string
	Collection string
	Dimensions int
}

// Intelligence holds the opaque IntelligenceService client settings.
type Intelligence struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// Embedding holds the sharded embedding-backend pool settings.
type Embedding struct {
	InstanceID     string
	BaseURLs       map[string]string // INSTANCE_ID -> base URL
	Model          string
	MaxConcurrent  int
	Retries        int
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	PoolTimeout    time.Duration
}

// Retry holds the exponential-backoff retry policy.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	JitterPct   float64
}

// CircuitBreaker holds per-downstream breaker tuning.
type CircuitBreaker struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	HalfOpenMax      int
}

// Async holds the async-enrichment feature flag and rollout percentage.
type Async struct {
	Enabled        bool
	RolloutPercent int
}

// Timeouts holds pipeline-wide deadline/shutdown settings.
type Timeouts struct {
	PipelineTotal     time.Duration
	ShutdownGrace     time.Duration
	StatusTrackerTTL  time.Duration
	SweeperInterval   time.Duration
	SweeperStaleAfter time.Duration
}

// Config is the single, validated, env-overridable configuration surface.
type Config struct {
	Kafka             Kafka
	Graph             Graph
	Vector            Vector
	Intelligence      Intelligence
	Embedding         Embedding
	Retry             Retry
	Breaker           CircuitBreaker
	Async             Async
	Timeouts          Timeouts
	MaxConcurrentWork int
	MaxContentBytes   int64
	MaxProcessingRate float64
	AllowedBasePaths  []string
	RedisAddr         string
	ServicePort       string
	MetricsPort       int
}

// Load reads every field from its environment variable, falling back to the
// documented default, then validates the result.
func Load() (Config, error) {
	cfg := Config{
		Kafka: Kafka{
			BootstrapServers: envList("KAFKA_BOOTSTRAP_SERVERS", []string{"localhost:9092"}),
			EnrichmentTopic:  envOr("KAFKA_ENRICHMENT_TOPIC", "dev.archon-intelligence.enrich-document.v1"),
			DLQTopic:         envOr("KAFKA_DLQ_TOPIC", "dev.archon-intelligence.enrich-document-dlq.v1"),
			CompletedTopic:   envOr("KAFKA_COMPLETED_TOPIC", "dev.archon-intelligence.enrichment-completed.v1"),
			ProgressTopic:    envOr("KAFKA_PROGRESS_TOPIC", "dev.archon-intelligence.enrichment-progress.v1"),
			GroupID:          envOr("KAFKA_GROUP_ID", "archon-intelligence-enrichers"),
			MaxPollRecords:   envInt("KAFKA_MAX_POLL_RECORDS", 500, 1, 10000),
		},
		Graph: Graph{
			URI:      envOr("MEMGRAPH_URI", "bolt://localhost:7687"),
			Username: envOr("MEMGRAPH_USER", "memgraph"),
			Password: envOr("MEMGRAPH_PASS", ""),
			PoolSize: envInt("MEMGRAPH_POOL_SIZE", 20, 1, 500),
		},
		Vector: Vector{
			GRPCAddr:   envOr("QDRANT_URL", "localhost:6334"),
			Collection: envOr("QDRANT_COLLECTION", "archon_vectors"),
			Dimensions: envInt("EMBEDDING_DIMENSIONS", 1536, 1, 65536),
		},
		Intelligence: Intelligence{
			BaseURL:        envOr("INTELLIGENCE_SERVICE_URL", "http://localhost:8090"),
			ConnectTimeout: envDuration("INTELLIGENCE_CONNECT_TIMEOUT", 5*time.Second, time.Millisecond, time.Minute),
			ReadTimeout:    envDuration("INTELLIGENCE_READ_TIMEOUT", 20*time.Second, time.Millisecond, 5*time.Minute),
			WriteTimeout:   envDuration("INTELLIGENCE_WRITE_TIMEOUT", 10*time.Second, time.Millisecond, 5*time.Minute),
		},
		Embedding: Embedding{
			InstanceID:     envOr("INSTANCE_ID", "consumer-0"),
			BaseURLs:       envEmbeddingEndpoints(),
			Model:          envOr("EMBEDDING_MODEL", "nomic-embed-text"),
			MaxConcurrent:  envInt("MAX_CONCURRENT_EMBEDDINGS", 10, 1, 1000),
			Retries:        envInt("EMBEDDING_RETRIES", 3, 0, 10),
			ConnectTimeout: envDuration("EMBEDDING_CONNECT_TIMEOUT", 5*time.Second, time.Millisecond, time.Minute),
			ReadTimeout:    envDuration("EMBEDDING_READ_TIMEOUT", 15*time.Second, time.Millisecond, 5*time.Minute),
			WriteTimeout:   envDuration("EMBEDDING_WRITE_TIMEOUT", 10*time.Second, time.Millisecond, 5*time.Minute),
			PoolTimeout:    envDuration("EMBEDDING_POOL_TIMEOUT", 2*time.Second, time.Millisecond, time.Minute),
		},
		Retry: Retry{
			MaxAttempts: envInt("RETRY_MAX_ATTEMPTS", 3, 1, 20),
			BaseDelay:   envDuration("RETRY_BACKOFF_BASE", 2*time.Second, time.Millisecond, time.Minute),
			Multiplier:  envFloat("RETRY_BACKOFF_MULTIPLIER", 2.0, 1.0, 10.0),
			MaxDelay:    envDuration("RETRY_MAX_DELAY", 60*time.Second, time.Millisecond, time.Hour),
			JitterPct:   envFloat("RETRY_JITTER_PCT", 0.10, 0, 1.0),
		},
		Breaker: CircuitBreaker{
			FailureThreshold: envInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5, 1, 1000),
			RecoveryTimeout:  envDuration("CIRCUIT_BREAKER_RECOVERY_TIMEOUT", 60*time.Second, time.Second, time.Hour),
			HalfOpenMax:      envInt("CIRCUIT_BREAKER_HALF_OPEN_MAX", 1, 1, 100),
		},
		Async: Async{
			Enabled:        envBool("ENABLE_ASYNC_ENRICHMENT", true),
			RolloutPercent: envInt("ASYNC_ENRICHMENT_ROLLOUT_PERCENTAGE", 100, 0, 100),
		},
		Timeouts: Timeouts{
			PipelineTotal:     envDuration("PIPELINE_TOTAL_TIMEOUT", 60*time.Second, time.Second, 10*time.Minute),
			ShutdownGrace:     envDuration("SHUTDOWN_GRACE_TIMEOUT", 30*time.Second, time.Second, 5*time.Minute),
			StatusTrackerTTL:  envDuration("STATUS_TRACKER_TTL", 24*time.Hour, time.Minute, 7*24*time.Hour),
			SweeperInterval:   envDuration("SWEEPER_INTERVAL", 30*time.Second, time.Second, time.Hour),
			SweeperStaleAfter: envDuration("SWEEPER_STALE_AFTER", 5*time.Minute, time.Second, 24*time.Hour),
		},
		MaxConcurrentWork: envInt("MAX_CONCURRENT_ENRICHMENTS", 10, 1, 1000),
		MaxContentBytes:   envInt64("MAX_CONTENT_SIZE_BYTES", 10*1024*1024, 1, 1024*1024*1024),
		MaxProcessingRate: envFloat("MAX_PROCESSING_RATE", 100.0, 0.1, 1_000_000),
		AllowedBasePaths:  envList("ALLOWED_BASE_PATHS", nil),
		RedisAddr:         envOr("STATUS_TRACKER_REDIS_ADDR", "localhost:6379"),
		ServicePort:       envOr("PORT", "8080"),
		MetricsPort:       envInt("METRICS_PORT", 9090, 1, 65535),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate asserts every value is within its documented range. Called once
// at startup before any connection is opened; a failure is fatal.
func (c Config) Validate() error {
	var errs []string

	if len(c.Kafka.BootstrapServers) == 0 {
		errs = append(errs, "KAFKA_BOOTSTRAP_SERVERS must not be empty")
	}
	if c.Kafka.EnrichmentTopic == "" || c.Kafka.DLQTopic == "" {
		errs = append(errs, "enrichment and DLQ topics must be set")
	}
	if c.Vector.Dimensions <= 0 {
		errs = append(errs, "EMBEDDING_DIMENSIONS must be positive")
	}
	if c.MaxConcurrentWork <= 0 {
		errs = append(errs, "MAX_CONCURRENT_ENRICHMENTS must be positive")
	}
	if c.MaxContentBytes <= 0 {
		errs = append(errs, "MAX_CONTENT_SIZE_BYTES must be positive")
	}
	if c.Async.RolloutPercent < 0 || c.Async.RolloutPercent > 100 {
		errs = append(errs, "ASYNC_ENRICHMENT_ROLLOUT_PERCENTAGE must be in [0,100]")
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "RETRY_MAX_ATTEMPTS must be positive")
	}
	if c.Breaker.FailureThreshold <= 0 {
		errs = append(errs, "CIRCUIT_BREAKER_FAILURE_THRESHOLD must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback, min, max int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func envInt64(key string, fallback, min, max int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func envFloat(key string, fallback, min, max float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}

func envDuration(key string, fallback, min, max time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envEmbeddingEndpoints reads EMBEDDING_BASE_URL_CONSUMER_{i} for i=0..63
// and returns a map of instance id ("consumer-{i}") to base URL.
func envEmbeddingEndpoints() map[string]string {
	out := make(map[string]string)
	for i := 0; i < 64; i++ {
		key := fmt.Sprintf("EMBEDDING_BASE_URL_CONSUMER_%d", i)
		if v := os.Getenv(key); v != "" {
			out[fmt.Sprintf("consumer-%d", i)] = v
		}
	}
	if len(out) == 0 {
		out["consumer-0"] = "http://localhost:11434"
	}
	return out
}
