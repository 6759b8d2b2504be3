// Package dlq writes exhausted enrichment requests to the dead-letter topic
// and classifies/replays them.
package dlq

import (
	"context"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/google/uuid"
)

// Entry is the payload written to the DLQ topic.
type Entry struct {
	DocumentID       uuid.UUID                     `json:"document_id"`
	FailureReason    string                        `json:"failure_reason"`
	FailureCategory  Category                      `json:"failure_category"`
	FailureTimestamp time.Time                     `json:"failure_timestamp"`
	FailureCount     int                           `json:"failure_count"`
	OriginalMessage  domain.EnrichmentRequestEvent `json:"original_message"`
	ErrorDetails     map[string]string             `json:"error_details"`
}

// Writer publishes exhausted requests to the DLQ topic, keyed on document id
// so all failures for the same document land on the same partition.
type Writer struct {
	producer *kafkautil.Producer
	topic    string
	source   event.EnvelopeSource
}

// NewWriter builds a Writer targeting topic via producer.
func NewWriter(producer *kafkautil.Producer, topic string, source event.EnvelopeSource) *Writer {
	return &Writer{producer: producer, topic: topic, source: source}
}

// Write classifies cause and publishes req plus the classification to the
// DLQ topic.
func (w *Writer) Write(ctx context.Context, req domain.EnrichmentRequestEvent, cause error, details map[string]string) error {
	entry := Entry{
		DocumentID:       req.DocumentID,
		FailureReason:    cause.Error(),
		FailureCategory:  Classify(cause),
		FailureTimestamp: time.Now(),
		FailureCount:     req.RetryCount,
		OriginalMessage:  req,
		ErrorDetails:     details,
	}
	return event.Publish(ctx, w.producer, w.topic, req.DocumentID.String(), event.TypeEnrichmentDLQ, req.CorrelationID, w.source, entry)
}
