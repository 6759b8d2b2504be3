package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// RedisTracker is the distributed Tracker: status JSON is stored under
// "status:<document_id>" with a TTL, so any consumer instance (or a restarted
// one) can serve GET /process/document/{id}/status.
type RedisTracker struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisTracker connects to addr and returns a RedisTracker with the given
// entry TTL.
func NewRedisTracker(addr string, ttl time.Duration) *RedisTracker {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisTracker{client: client, ttl: ttl}
}

// Close closes the underlying Redis connection.
func (t *RedisTracker) Close() error { return t.client.Close() }

func key(documentID uuid.UUID) string {
	return "status:" + documentID.String()
}

func (t *RedisTracker) RecordStart(ctx context.Context, documentID, correlationID uuid.UUID) error {
	ts := domain.NewTaskStatus(documentID, correlationID)
	ts.Status = "running"
	return t.put(ctx, documentID, ts)
}

func (t *RedisTracker) UpdateStep(ctx context.Context, documentID uuid.UUID, stage domain.PipelineStage, status domain.StepStatus) error {
	ts, err := t.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if ts.PipelineSteps == nil {
		ts.PipelineSteps = make(map[domain.PipelineStage]domain.StepStatus, len(domain.AllStages))
	}
	ts.PipelineSteps[stage] = status
	return t.put(ctx, documentID, ts)
}

func (t *RedisTracker) RecordSuccess(ctx context.Context, documentID uuid.UUID, entitiesExtracted int, vectorIndexed bool) error {
	ts, err := t.Get(ctx, documentID)
	if err != nil {
		return err
	}
	now := time.Now()
	ts.Status = "success"
	ts.CompletedAt = &now
	ts.EntitiesExtracted = entitiesExtracted
	ts.VectorIndexed = vectorIndexed
	return t.put(ctx, documentID, ts)
}

func (t *RedisTracker) RecordFailure(ctx context.Context, documentID uuid.UUID, errMessage string, details map[string]string) error {
	ts, err := t.Get(ctx, documentID)
	if err != nil {
		return err
	}
	now := time.Now()
	ts.Status = "failed"
	ts.CompletedAt = &now
	ts.ErrorMessage = errMessage
	ts.ErrorDetails = details
	return t.put(ctx, documentID, ts)
}

func (t *RedisTracker) Get(ctx context.Context, documentID uuid.UUID) (domain.TaskStatus, error) {
	raw, err := t.client.Get(ctx, key(documentID)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return domain.TaskStatus{}, ErrNotFound
		}
		return domain.TaskStatus{}, fmt.Errorf("status: redis get: %w", err)
	}
	var ts domain.TaskStatus
	if err := json.Unmarshal(raw, &ts); err != nil {
		return domain.TaskStatus{}, fmt.Errorf("status: decode: %w", err)
	}
	return ts, nil
}

func (t *RedisTracker) put(ctx context.Context, documentID uuid.UUID, ts domain.TaskStatus) error {
	raw, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("status: encode: %w", err)
	}
	if err := t.client.Set(ctx, key(documentID), raw, t.ttl).Err(); err != nil {
		return fmt.Errorf("status: redis set: %w", err)
	}
	return nil
}
