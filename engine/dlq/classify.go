package dlq

import (
	"context"
	"errors"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/enrich"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/engine/status"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/resilience"
)

// Category is the failure classification a DLQProcessor assigns an entry,
// which decides whether it is ever safe to replay.
type Category string

const (
	CategoryTransient   Category = "transient"
	CategoryDataQuality Category = "data_quality"
	CategoryServiceDown Category = "service_down"
	CategoryInternal    Category = "internal_error"
)

// Classify assigns a Category from the failing error, preferring the most
// specific match: validation errors are always data_quality, an open
// circuit breaker is always service_down, a recovered panic or other
// programmer error is always internal_error, and everything else retriable
// defaults to transient.
func Classify(err error) Category {
	if err == nil {
		return CategoryInternal
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return CategoryDataQuality
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return CategoryServiceDown
	}
	var ie *enrich.InternalError
	if errors.As(err, &ie) {
		return CategoryInternal
	}
	return CategoryTransient
}

// Processor replays DLQ entries back onto the main topic according to the
// failure category recorded on each entry. It does not check the state of
// any circuit breaker before replaying.
type Processor struct {
	producer  *kafkautil.Producer
	mainTopic string
	tracker   status.Tracker
	source    event.EnvelopeSource
}

// NewProcessor builds a Processor that replays onto mainTopic.
func NewProcessor(producer *kafkautil.Producer, mainTopic string, tracker status.Tracker, source event.EnvelopeSource) *Processor {
	return &Processor{producer: producer, mainTopic: mainTopic, tracker: tracker, source: source}
}

// Replay republishes entry's original message onto the main enrichment
// topic with RetryCount reset to zero (a reprocessed document gets a fresh
// retry budget), skipping data_quality entries (they will only fail
// validation again).
func (p *Processor) Replay(ctx context.Context, entry Entry) error {
	if entry.FailureCategory == CategoryDataQuality {
		return nil
	}
	req := entry.OriginalMessage
	req.RetryCount = 0
	if err := event.Publish(ctx, p.producer, p.mainTopic, req.DocumentID.String(), event.TypeEnrichmentRequested, req.CorrelationID, p.source, req); err != nil {
		return err
	}
	if p.tracker != nil {
		_ = p.tracker.RecordStart(ctx, req.DocumentID, req.CorrelationID)
	}
	return nil
}
