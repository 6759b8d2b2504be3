package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/idgen"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/google/uuid"
)

// Sweeper periodically rescans for documents stuck in "pending" and
// re-emits their enrichment request.
type Sweeper struct {
	graph    *graph.GraphStore
	producer *kafkautil.Producer
	topic    string
	interval time.Duration
	stale    time.Duration
	source   event.EnvelopeSource
	log      *slog.Logger
}

// NewSweeper builds a Sweeper that rescans every interval for pending
// documents older than stale.
func NewSweeper(g *graph.GraphStore, producer *kafkautil.Producer, topic string, interval, stale time.Duration, source event.EnvelopeSource, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{graph: g, producer: producer, topic: topic, interval: interval, stale: stale, source: source, log: log}
}

// Run ticks until ctx is cancelled, re-emitting enrichment requests for
// stuck pending documents on each tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.stale).Unix()
	stale, err := s.graph.StalePending(ctx, cutoff)
	if err != nil {
		s.log.Error("sweeper: stale pending query failed", "error", err)
		return
	}
	for _, f := range stale {
		documentID, err := uuid.Parse(f.DocumentID)
		if err != nil {
			documentID = idgen.NewDocumentID()
		}
		req := domain.EnrichmentRequestEvent{
			DocumentID:     documentID,
			ProjectName:    f.Project,
			ContentHash:    f.ContentHash,
			FilePath:       f.Path,
			DocumentType:   domain.DocumentType(f.DocumentType),
			Language:       f.Language,
			EnrichmentType: domain.EnrichmentFull,
			Priority:       domain.PriorityLow,
			CorrelationID:  idgen.NewCorrelationID(),
			IndexedAt:      time.Now(),
		}
		if err := event.Publish(ctx, s.producer, s.topic, req.DocumentID.String(), event.TypeEnrichmentRequested, req.CorrelationID, s.source, req); err != nil {
			s.log.Error("sweeper: republish failed", "path", f.Path, "error", err)
		}
	}
}
