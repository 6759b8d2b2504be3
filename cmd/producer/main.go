// Package main implements the producer/indexer HTTP service: the
// synchronous skeleton-index-and-emit surface plus document status polling.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
	"github.com/archon-intelligence/enrichment-pipeline/engine/ingest"
	"github.com/archon-intelligence/enrichment-pipeline/engine/status"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/config"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/metrics"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/mid"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
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
		logger.Error("producer exited with error", "err", err)
		os.Exit(1)
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

	source := envelopeSource("enrichment-producer", cfg.Embedding.InstanceID)

	indexer := ingest.New(ingest.Deps{
		Graph:    graphStore,
		Producer: producer,
		Tracker:  tracker,
		Lookup:   documentLookup(graphStore),
		Topic:    cfg.Kafka.EnrichmentTopic,
		Async:    cfg.Async,
		Source:   source,
	})

	sweeper := ingest.NewSweeper(graphStore, producer, cfg.Kafka.EnrichmentTopic,
		cfg.Timeouts.SweeperInterval, cfg.Timeouts.SweeperStaleAfter, source, logger)
	go sweeper.Run(ctx)

	reg := metrics.New()
	reg.CollectRuntime("producer", 15*time.Second)
	documentsIndexed := reg.Counter("documents_indexed_total", "documents successfully skeleton-indexed")
	indexErrors := reg.Counter("document_index_errors_total", "document indexing failures")
	reg.ServeAsync(cfg.MetricsPort)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth(neo4jDriver, cfg.Kafka.BootstrapServers, tracker))
	mux.HandleFunc("POST /process/document", handleProcessDocument(indexer, documentsIndexed, indexErrors, cfg, logger))
	mux.HandleFunc("GET /process/document/{document_id}/status", handleStatus(tracker, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS("*"),
		mid.OTel("enrichment-producer"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.ServicePort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("producer server starting", "port", cfg.ServicePort)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// envelopeSource identifies this process in every event envelope it emits.
func envelopeSource(service, instanceID string) event.EnvelopeSource {
	hostname, _ := os.Hostname()
	return event.EnvelopeSource{Service: service, InstanceID: instanceID, Hostname: hostname}
}

// documentLookup adapts GraphStore.GetFile to ingest.DocumentLookup,
// translating "not found" into the (false, nil) shape Index expects rather
// than surfacing the Cypher-miss error.
func documentLookup(g *graph.GraphStore) ingest.DocumentLookup {
	return func(ctx context.Context, project, filePath string) (domain.Document, bool, error) {
		file, err := g.GetFile(ctx, filePath)
		if err != nil {
			return domain.Document{}, false, nil
		}
		documentID, _ := uuid.Parse(file.DocumentID)
		return domain.Document{
			DocumentID:       documentID,
			ProjectName:      file.Project,
			ContentHash:      file.ContentHash,
			FilePath:         file.Path,
			DocumentType:     domain.DocumentType(file.DocumentType),
			Language:         file.Language,
			EnrichmentStatus: domain.EnrichmentStatus(file.EnrichmentStatus),
			// The graph stage writes content_hash together with status
			// completed, so for a completed File it is the enriched hash.
			EnrichmentContentHash: file.ContentHash,
		}, true, nil
	}
}

// handleHealth reports aggregate service health: unhealthy (503) when Kafka
// or the graph store is unreachable, degraded (200) when only the status
// tracker is down, healthy (200) otherwise.
func handleHealth(driver neo4j.DriverWithContext, brokers []string, tracker status.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		deps := map[string]string{"graph": "up", "kafka": "up", "status_tracker": "up"}
		overall := "healthy"
		code := http.StatusOK

		if err := driver.VerifyConnectivity(ctx); err != nil {
			deps["graph"] = "down"
			overall, code = "unhealthy", http.StatusServiceUnavailable
		}
		if err := kafkautil.Ping(ctx, brokers); err != nil {
			deps["kafka"] = "down"
			overall, code = "unhealthy", http.StatusServiceUnavailable
		}
		if _, err := tracker.Get(ctx, uuid.Nil); err != nil && err != status.ErrNotFound {
			deps["status_tracker"] = "down"
			if overall == "healthy" {
				overall = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{"status": overall, "dependencies": deps})
	}
}

// processDocumentRequest is the JSON body for POST /process/document. One
// document per request; bulk submission goes through the ingest CLI.
type processDocumentRequest struct {
	ProjectName  string            `json:"project_name"`
	FilePath     string            `json:"file_path"`
	DocumentType string            `json:"document_type"`
	Language     string            `json:"language,omitempty"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func handleProcessDocument(indexer *ingest.Indexer, indexed, errs *metrics.Counter, cfg config.Config, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req processDocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		doc := domain.Document{
			ProjectName:  req.ProjectName,
			FilePath:     req.FilePath,
			DocumentType: domain.DocumentType(req.DocumentType),
			Language:     domain.NormalizeLanguage(req.Language),
			Content:      req.Content,
			Metadata:     req.Metadata,
		}
		if err := domain.ValidateDocument(doc, cfg.MaxContentBytes, cfg.AllowedBasePaths); err != nil {
			errs.Inc()
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusUnprocessableEntity)
			return
		}

		result, err := indexer.Index(r.Context(), doc)
		if err != nil {
			errs.Inc()
			logger.Error("index failed", "project", req.ProjectName, "path", req.FilePath, "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		indexed.Inc()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(result)
	}
}

func handleStatus(tracker status.Tracker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		documentID, err := uuid.Parse(r.PathValue("document_id"))
		if err != nil {
			http.Error(w, `{"error":"invalid document_id"}`, http.StatusBadRequest)
			return
		}

		ts, err := tracker.Get(r.Context(), documentID)
		if err != nil {
			if err == status.ErrNotFound {
				http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
				return
			}
			logger.Error("status lookup failed", "document_id", documentID, "err", err)
			http.Error(w, `{"error":"status tracker unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ts)
	}
}
