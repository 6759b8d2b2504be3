package status

import (
	"context"
	"sync"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/google/uuid"
)

// MemoryTracker is the single-process Tracker: a mutex-guarded map reaped by
// a background goroutine on a fixed interval.
type MemoryTracker struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]entry
	ttl     time.Duration
	now     func() time.Time
}

type entry struct {
	status    domain.TaskStatus
	expiresAt time.Time
}

// NewMemoryTracker creates a MemoryTracker with the given TTL and starts its
// reaper goroutine, stopped when ctx is cancelled.
func NewMemoryTracker(ctx context.Context, ttl, reapInterval time.Duration) *MemoryTracker {
	t := &MemoryTracker{
		entries: make(map[uuid.UUID]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	go t.reap(ctx, reapInterval)
	return t
}

func (t *MemoryTracker) reap(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.mu.Lock()
			for id, e := range t.entries {
				if now.After(e.expiresAt) {
					delete(t.entries, id)
				}
			}
			t.mu.Unlock()
		}
	}
}

func (t *MemoryTracker) RecordStart(_ context.Context, documentID, correlationID uuid.UUID) error {
	ts := domain.NewTaskStatus(documentID, correlationID)
	ts.Status = "running"
	t.mu.Lock()
	t.entries[documentID] = entry{status: ts, expiresAt: t.now().Add(t.ttl)}
	t.mu.Unlock()
	return nil
}

func (t *MemoryTracker) UpdateStep(_ context.Context, documentID uuid.UUID, stage domain.PipelineStage, status domain.StepStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[documentID]
	if !ok {
		return ErrNotFound
	}
	if e.status.PipelineSteps == nil {
		e.status.PipelineSteps = make(map[domain.PipelineStage]domain.StepStatus, len(domain.AllStages))
	}
	e.status.PipelineSteps[stage] = status
	e.expiresAt = t.now().Add(t.ttl)
	t.entries[documentID] = e
	return nil
}

func (t *MemoryTracker) RecordSuccess(_ context.Context, documentID uuid.UUID, entitiesExtracted int, vectorIndexed bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[documentID]
	if !ok {
		return ErrNotFound
	}
	now := t.now()
	e.status.Status = "success"
	e.status.CompletedAt = &now
	e.status.EntitiesExtracted = entitiesExtracted
	e.status.VectorIndexed = vectorIndexed
	e.expiresAt = now.Add(t.ttl)
	t.entries[documentID] = e
	return nil
}

func (t *MemoryTracker) RecordFailure(_ context.Context, documentID uuid.UUID, errMessage string, details map[string]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[documentID]
	if !ok {
		return ErrNotFound
	}
	now := t.now()
	e.status.Status = "failed"
	e.status.CompletedAt = &now
	e.status.ErrorMessage = errMessage
	e.status.ErrorDetails = details
	e.expiresAt = now.Add(t.ttl)
	t.entries[documentID] = e
	return nil
}

func (t *MemoryTracker) Get(_ context.Context, documentID uuid.UUID) (domain.TaskStatus, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[documentID]
	if !ok || t.now().After(e.expiresAt) {
		return domain.TaskStatus{}, ErrNotFound
	}
	return e.status, nil
}
