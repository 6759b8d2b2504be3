// Package status tracks per-document enrichment progress for the producer's
// polling HTTP surface. Two implementations trade durability for simplicity:
// MemoryTracker (single-process, TTL-reaped) and RedisTracker (distributed,
// survives consumer restart). The in-memory form degrades status polling
// across replicas but keeps a single-process deployment self-contained.
package status

import (
	"context"
	"errors"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when no status has been recorded for a
// document, or it has expired past its TTL.
var ErrNotFound = errors.New("status: not found")

// Tracker records and serves per-document pipeline progress.
type Tracker interface {
	RecordStart(ctx context.Context, documentID, correlationID uuid.UUID) error
	UpdateStep(ctx context.Context, documentID uuid.UUID, stage domain.PipelineStage, status domain.StepStatus) error
	RecordSuccess(ctx context.Context, documentID uuid.UUID, entitiesExtracted int, vectorIndexed bool) error
	RecordFailure(ctx context.Context, documentID uuid.UUID, errMessage string, details map[string]string) error
	Get(ctx context.Context, documentID uuid.UUID) (domain.TaskStatus, error)
}
