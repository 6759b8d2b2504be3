// Package enrich implements the six-stage enrichment pipeline (validate ->
// intelligence -> stamp -> vector -> graph -> cache warm). The stages are
// plain functions called in turn; vector and graph run concurrently via
// pkg/fn.FanOutResult, and the intelligence call is retried with pkg/fn.Retry
// through an optional resilience.Breaker.
package enrich

import (
	"context"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
)

// IntelligenceService is the opaque entity/quality/pattern extraction
// collaborator, specified only at this interface. Implementations may be a
// local in-process call or a remote RPC.
type IntelligenceService interface {
	Generate(ctx context.Context, req domain.EnrichmentRequestEvent) (domain.EnrichmentResult, error)
}

// StageOutcome pairs the (possibly unchanged) working state with one stage's
// status. It carries no error, and the stage functions in this package do
// not return it.
type StageOutcome struct {
	Request domain.EnrichmentRequestEvent
	Result  domain.EnrichmentResult
	Vector  []float32
	Status  domain.StepStatus
}

// Outcome is the terminal result of a full pipeline run: every stage's
// status plus whatever partial EnrichmentResult/vector was produced before a
// terminal failure, so the caller can emit EnrichmentCompletedEvent (success
// or partial) or EnrichmentFailedEvent.
type Outcome struct {
	Request           domain.EnrichmentRequestEvent
	Result            domain.EnrichmentResult
	Vector            []float32
	VectorPointID     string
	Steps             map[domain.PipelineStage]domain.StepStatus
	Durations         map[domain.PipelineStage]time.Duration
	FailedStage       domain.PipelineStage
	Err               error
	Retriable         bool
	Partial           bool
	EmbeddingDegraded bool
}

// newOutcome starts Steps empty (sized for all six stages); a stage gets an
// entry only once it has run, so a run that stops early reports fewer.
func newOutcome(req domain.EnrichmentRequestEvent) Outcome {
	return Outcome{
		Request:   req,
		Steps:     make(map[domain.PipelineStage]domain.StepStatus, len(domain.AllStages)),
		Durations: make(map[domain.PipelineStage]time.Duration, len(domain.AllStages)),
	}
}
