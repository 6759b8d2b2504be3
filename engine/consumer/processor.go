// Package consumer implements the enrichment consumer fleet: a bounded
// worker pool fetching from the enrich-document.v1 topic, dispatching each
// message through the six-stage pipeline, and committing offsets only after
// a terminal (success, failure-routed-to-DLQ) outcome.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/dlq"
	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/enrich"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/metrics"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// defaultMaxRetryCount is used only when Deps.MaxRetryCount is left unset
// (e.g. by a test); production wiring always threads cfg.Retry.MaxAttempts
// through.
const defaultMaxRetryCount = 3

// Processor fetches, decodes, dispatches, and commits enrichment requests
// with bounded worker concurrency.
type Processor struct {
	reader       kafkautil.Reader
	runner       *enrich.Runner
	dlqWriter    *dlq.Writer
	producer     *kafkautil.Producer
	retopic      string
	workers      int
	maxRetries   int
	rate         *RateMeter
	intelBreaker *resilience.Breaker
	log          *slog.Logger

	completedTopic string
	source         event.EnvelopeSource
	successes      *metrics.Counter
	partials       *metrics.Counter
	retries        *metrics.Counter
	dlqTotal       *metrics.Counter
	fallbacks      *metrics.Counter
}

// Deps collects the Processor's collaborators.
type Deps struct {
	Reader         kafkautil.Reader
	Runner         *enrich.Runner
	DLQWriter      *dlq.Writer
	Producer       *kafkautil.Producer
	RetryTopic     string
	Workers        int
	MaxRetryCount  int
	MaxRate        float64
	IntelBreaker   *resilience.Breaker
	Log            *slog.Logger
	CompletedTopic string
	Source         event.EnvelopeSource
	Metrics        *metrics.Registry
}

// New builds a Processor from deps.
func New(deps Deps) *Processor {
	if deps.Workers <= 0 {
		deps.Workers = 1
	}
	if deps.MaxRetryCount <= 0 {
		deps.MaxRetryCount = defaultMaxRetryCount
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = metrics.New()
	}
	return &Processor{
		reader:       deps.Reader,
		runner:       deps.Runner,
		dlqWriter:    deps.DLQWriter,
		producer:     deps.Producer,
		retopic:      deps.RetryTopic,
		workers:      deps.Workers,
		maxRetries:   deps.MaxRetryCount,
		rate:         NewRateMeter(deps.MaxRate),
		intelBreaker: deps.IntelBreaker,
		log:          log,

		completedTopic: deps.CompletedTopic,
		source:         deps.Source,
		successes:      reg.Counter("enrichment_success_total", "Documents enriched cleanly"),
		partials:       reg.Counter("enrichment_partial_total", "Documents enriched with a degraded or failed vector sink"),
		retries:        reg.Counter("enrichment_retries_total", "Enrichment requests republished for retry"),
		dlqTotal:       reg.Counter("enrichment_dlq_total", "Enrichment requests routed to the DLQ"),
		fallbacks:      reg.Counter("embeddings_fallback_total", "Embeddings that fell back to a zero vector"),
	}
}

// Run fetches messages and dispatches them across deps.Workers goroutines
// until ctx is cancelled, then drains in-flight work before returning.
func (p *Processor) Run(ctx context.Context) error {
	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for {
		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			wg.Wait()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		p.rate.Throttle(ctx)

		sem <- struct{}{}
		wg.Add(1)
		go func(msg kafka.Message) {
			defer func() { <-sem; wg.Done() }()
			p.handle(ctx, msg)
		}(msg)
	}
}

// handle decodes one message, runs the pipeline, and commits the offset. A
// malformed payload is committed and dropped rather than retried — it can
// never succeed. A pipeline failure that is still retriable and under
// p.maxRetries is republished with RetryCount incremented; otherwise it
// goes to the DLQ. Either way the offset commits, since the retry copy (or
// DLQ entry) is now the durable record of the attempt.
func (p *Processor) handle(ctx context.Context, msg kafka.Message) {
	ctx, _, req, err := event.Decode[domain.EnrichmentRequestEvent](ctx, msg)
	if err != nil {
		p.log.Error("malformed enrichment request, dropping", "error", err)
		p.commit(ctx, msg)
		return
	}

	outcome := p.runner.Run(ctx, req)
	if outcome.Err == nil {
		p.recordSuccess(ctx, req, outcome)
		p.commit(ctx, msg)
		return
	}

	p.log.Error("enrichment failed",
		"document_id", req.DocumentID,
		"correlation_id", req.CorrelationID,
		"stage", outcome.FailedStage,
		"retriable", outcome.Retriable,
		"error", outcome.Err,
	)

	if outcome.Retriable && req.RetryCount < p.maxRetries {
		retryReq := req
		retryReq.RetryCount++
		if err := event.Publish(ctx, p.producer, p.retopic, retryReq.DocumentID.String(), event.TypeEnrichmentRequested, retryReq.CorrelationID, p.source, retryReq); err != nil {
			p.log.Error("requeue failed, routing to DLQ", "error", err)
			p.toDLQ(ctx, req, outcome)
		} else {
			p.retries.Inc()
		}
	} else {
		p.emitFailed(ctx, req, outcome)
		p.toDLQ(ctx, req, outcome)
	}
	p.commit(ctx, msg)
}

// recordSuccess publishes the EnrichmentCompletedEvent (status "success" or
// "partial") and bumps the per-outcome counters.
func (p *Processor) recordSuccess(ctx context.Context, req domain.EnrichmentRequestEvent, outcome enrich.Outcome) {
	if outcome.EmbeddingDegraded {
		p.fallbacks.Inc()
	}
	status := "success"
	if outcome.Partial {
		status = "partial"
		p.partials.Inc()
	} else {
		p.successes.Inc()
	}

	if p.completedTopic == "" {
		return
	}
	durations := make(map[domain.PipelineStage]int64, len(outcome.Durations))
	for stage, d := range outcome.Durations {
		durations[stage] = d.Milliseconds()
	}
	ev := domain.EnrichmentCompletedEvent{
		DocumentID:        req.DocumentID,
		CorrelationID:     req.CorrelationID,
		ProjectName:       req.ProjectName,
		ContentHash:       req.ContentHash,
		Status:            status,
		PipelineSteps:     outcome.Steps,
		StageDurationsMs:  durations,
		EntitiesExtracted: len(outcome.Result.Entities),
		VectorPointID:     outcome.VectorPointID,
		CompletedAt:       time.Now(),
	}
	if err := event.Publish(ctx, p.producer, p.completedTopic, req.DocumentID.String(), event.TypeEnrichmentCompleted, req.CorrelationID, p.source, ev); err != nil {
		p.log.Error("completed event publish failed", "document_id", req.DocumentID, "error", err)
	}
}

// emitFailed publishes the EnrichmentFailedEvent next to the DLQ record so
// subscribers of the completed stream see terminal failures too.
func (p *Processor) emitFailed(ctx context.Context, req domain.EnrichmentRequestEvent, outcome enrich.Outcome) {
	if p.completedTopic == "" {
		return
	}
	ev := domain.EnrichmentFailedEvent{
		DocumentID:    req.DocumentID,
		CorrelationID: req.CorrelationID,
		ProjectName:   req.ProjectName,
		FilePath:      req.FilePath,
		FailedStage:   outcome.FailedStage,
		ErrorMessage:  outcome.Err.Error(),
		Retriable:     outcome.Retriable,
		RetryCount:    req.RetryCount,
		FailedAt:      time.Now(),
	}
	if err := event.Publish(ctx, p.producer, p.completedTopic, req.DocumentID.String(), event.TypeEnrichmentFailed, req.CorrelationID, p.source, ev); err != nil {
		p.log.Error("failed event publish failed", "document_id", req.DocumentID, "error", err)
	}
}

// toDLQ builds the error_details sub-fields — exception_type,
// exception_message, service_health_snapshot — alongside the failing stage,
// then publishes the entry.
func (p *Processor) toDLQ(ctx context.Context, req domain.EnrichmentRequestEvent, outcome enrich.Outcome) {
	details := map[string]string{
		"stage":                   string(outcome.FailedStage),
		"exception_type":          fmt.Sprintf("%T", outcome.Err),
		"exception_message":       outcome.Err.Error(),
		"service_health_snapshot": p.healthSnapshot(),
	}
	if err := p.dlqWriter.Write(ctx, req, outcome.Err, details); err != nil {
		p.log.Error("dlq write failed", "document_id", req.DocumentID, "error", err)
		return
	}
	p.dlqTotal.Inc()
}

// healthSnapshot summarizes the per-downstream circuit breaker states known
// to this processor at the moment a failure is routed to the DLQ, so an
// operator inspecting a DLQ entry can tell whether a downstream was already
// known-unhealthy when the failure occurred.
func (p *Processor) healthSnapshot() string {
	if p.intelBreaker == nil {
		return "unknown"
	}
	return "intelligence_service=" + p.intelBreaker.State().String()
}

func (p *Processor) commit(ctx context.Context, msg kafka.Message) {
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.log.Error("commit failed", "error", err)
	}
}
