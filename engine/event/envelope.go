// Package event defines the canonical event envelope, topic naming, topic
// provisioning specs, and a lightweight schema registry shared by the
// producer and consumer fleet.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeSource identifies the process that emitted an envelope.
type EnvelopeSource struct {
	Service    string `json:"service"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname,omitempty"`
}

// Envelope is the canonical shape every event on every topic carries.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	CausationID   *uuid.UUID      `json:"causation_id,omitempty"`
	Source        EnvelopeSource  `json:"source"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// New builds an Envelope wrapping the JSON-marshaled payload.
func New(eventType, version string, correlationID uuid.UUID, source EnvelopeSource, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("event: marshal payload: %w", err)
	}
	return Envelope{
		EventID:       uuid.New(),
		EventType:     eventType,
		Version:       version,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
		Source:        source,
		Payload:       raw,
	}, nil
}

// Topic builds a topic name of the form <env>.<domain>.<entity>.<action>.<version>.
// action is optional — omitted entities (e.g. "enrich-document.v1") pass "".
func Topic(env, domain, entity, action, version string) string {
	if action == "" {
		return fmt.Sprintf("%s.%s.%s.%s", env, domain, entity, version)
	}
	return fmt.Sprintf("%s.%s.%s.%s.%s", env, domain, entity, action, version)
}

// Topic catalog — entity/action/version triples, independent of the
// deployment env prefix which callers supply via Topic().
const (
	EntityEnrichDocument      = "enrich-document"
	EntityEnrichDocumentDLQ   = "enrich-document-dlq"
	EntityEnrichmentCompleted = "enrichment-completed"
	EntityEnrichmentProgress  = "enrichment-progress"

	ActionNone = "" // topics here have no distinct action segment beyond version
)

// CleanPolicy is a Kafka topic's retention cleanup policy.
type CleanPolicy string

const (
	CleanDelete  CleanPolicy = "delete"
	CleanCompact CleanPolicy = "compact"
)

// Compression names a Kafka topic's compression codec.
type Compression string

const (
	CompressionSnappy Compression = "snappy"
	CompressionGzip   Compression = "gzip"
)

// TopicSpec declares the provisioning configuration for one topic, asserted
// as Go constants here so tooling/tests can check live topic config against
// the intended parameters rather than trust broker defaults.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationProd   int
	ReplicationDev    int
	RetentionMillis   int64
	CleanupPolicy     CleanPolicy
	Compression       Compression
	KeyedOnDocumentID bool
}

const (
	day  = int64(24 * time.Hour / time.Millisecond)
	hour = int64(time.Hour / time.Millisecond)
)

// Catalog is the full set of provisioned topic specs. Names are computed
// from Topic() with a placeholder "dev" env; provisioning tooling replaces
// the env segment per deployment.
var Catalog = []TopicSpec{
	{
		Name:            Topic("dev", "archon-intelligence", EntityEnrichDocument, "", "v1"),
		Partitions:      4,
		ReplicationProd: 3,
		ReplicationDev:  1,
		RetentionMillis: 7 * day,
		CleanupPolicy:   CleanDelete,
		Compression:     CompressionSnappy,
	},
	{
		Name:              Topic("dev", "archon-intelligence", EntityEnrichDocumentDLQ, "", "v1"),
		Partitions:        1,
		ReplicationProd:   3,
		ReplicationDev:    1,
		RetentionMillis:   30 * day,
		CleanupPolicy:     CleanCompact,
		Compression:       CompressionGzip,
		KeyedOnDocumentID: true,
	},
	{
		Name:            Topic("dev", "archon-intelligence", EntityEnrichmentCompleted, "", "v1"),
		Partitions:      4,
		ReplicationProd: 3,
		ReplicationDev:  1,
		RetentionMillis: 6 * hour,
		CleanupPolicy:   CleanDelete,
		Compression:     CompressionSnappy,
	},
	{
		Name:            Topic("dev", "archon-intelligence", EntityEnrichmentProgress, "", "v1"),
		Partitions:      4,
		ReplicationProd: 3,
		ReplicationDev:  1,
		RetentionMillis: 1 * hour,
		CleanupPolicy:   CleanDelete,
		Compression:     CompressionSnappy,
	},
}
