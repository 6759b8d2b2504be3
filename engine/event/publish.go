package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event type constants for the registered payload schemas.
const (
	TypeEnrichmentRequested = "enrichment.requested"
	TypeEnrichmentCompleted = "enrichment.completed"
	TypeEnrichmentFailed    = "enrichment.failed"
	TypeEnrichmentDLQ       = "enrichment.dlq"

	SchemaVersion = "v1"
)

// Publish wraps payload in the canonical Envelope, validates it against the
// schema registry, and writes it to topic keyed by key. Every event on every
// topic goes through here so no producer can emit a bare payload.
func Publish[T any](ctx context.Context, p *kafkautil.Producer, topic, key, eventType string, correlationID uuid.UUID, source EnvelopeSource, payload T) error {
	env, err := New(eventType, SchemaVersion, correlationID, source, payload)
	if err != nil {
		return err
	}
	if err := Validate(env); err != nil {
		return fmt.Errorf("event: refusing to publish invalid %s: %w", eventType, err)
	}
	return kafkautil.Publish(ctx, p, topic, key, env)
}

// Decode extracts trace context from msg, unwraps its Envelope, and
// unmarshals the payload into T. The returned Envelope gives consumers the
// correlation id and event type without re-parsing.
func Decode[T any](ctx context.Context, msg kafka.Message) (context.Context, Envelope, T, error) {
	var payload T
	ctx, env, err := kafkautil.Decode[Envelope](ctx, msg)
	if err != nil {
		return ctx, Envelope{}, payload, err
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return ctx, env, payload, fmt.Errorf("event: message has no payload (event_type %q)", env.EventType)
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return ctx, env, payload, fmt.Errorf("event: decode %s payload: %w", env.EventType, err)
	}
	return ctx, env, payload, nil
}
