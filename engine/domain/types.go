// Package domain defines the core entities of the enrichment pipeline and
// acts as the validation gate at pipeline entry points.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType classifies the kind of content a Document carries.
type DocumentType string

const (
	DocumentCode          DocumentType = "code"
	DocumentDocumentation DocumentType = "documentation"
	DocumentConfiguration DocumentType = "configuration"
	DocumentTest          DocumentType = "test"
	DocumentOther         DocumentType = "other"
)

// ValidDocumentTypes is the set of recognized document types.
var ValidDocumentTypes = map[DocumentType]bool{
	DocumentCode: true, DocumentDocumentation: true, DocumentConfiguration: true,
	DocumentTest: true, DocumentOther: true,
}

// EnrichmentStatus tracks a Document's position in the pipeline.
type EnrichmentStatus string

const (
	EnrichmentPending    EnrichmentStatus = "pending"
	EnrichmentInProgress EnrichmentStatus = "in_progress"
	EnrichmentCompleted  EnrichmentStatus = "completed"
	EnrichmentFailed     EnrichmentStatus = "failed"
	EnrichmentDLQ        EnrichmentStatus = "dlq"
)

// EnrichmentType selects how much work the pipeline performs for a request.
type EnrichmentType string

const (
	EnrichmentFull         EnrichmentType = "full"
	EnrichmentIncremental  EnrichmentType = "incremental"
	EnrichmentQualityOnly  EnrichmentType = "quality_only"
	EnrichmentEntitiesOnly EnrichmentType = "entities_only"
)

// Priority orders enrichment requests for schedulers that support it.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// StepStatus is the per-stage outcome recorded into TaskStatus.pipeline_steps.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// PipelineStage names the six enrichment stages, in execution order.
type PipelineStage string

const (
	StageValidate     PipelineStage = "validate"
	StageIntelligence PipelineStage = "intelligence"
	StageStamp        PipelineStage = "stamp"
	StageVector       PipelineStage = "vector"
	StageGraph        PipelineStage = "graph"
	StageCacheWarm    PipelineStage = "cache_warm"
)

// AllStages lists the six stages in execution order. It sizes the
// per-stage maps; those maps are not pre-populated, so a terminal event
// reports only the stages that actually ran.
var AllStages = []PipelineStage{
	StageValidate, StageIntelligence, StageStamp, StageVector, StageGraph, StageCacheWarm,
}

// Document is the unit of work indexed by the producer. The pair
// (ProjectName, ContentHash) is the idempotency key for enrichment writes.
type Document struct {
	DocumentID            uuid.UUID         `json:"document_id"`
	ProjectName           string            `json:"project_name"`
	ContentHash           string            `json:"content_hash"`
	FilePath              string            `json:"file_path"`
	DocumentType          DocumentType      `json:"document_type"`
	Language              string            `json:"language,omitempty"`
	Content               string            `json:"-"`
	IndexedAt             time.Time         `json:"indexed_at"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	EnrichmentStatus      EnrichmentStatus  `json:"enrichment_status"`
	EnrichedAt            *time.Time        `json:"enriched_at,omitempty"`
	EnrichmentContentHash string            `json:"enrichment_content_hash,omitempty"`
}

// EnrichmentRequestEvent is the payload of the enrich-document.v1 topic.
// Keyed on DocumentID so Kafka preserves per-document ordering.
type EnrichmentRequestEvent struct {
	DocumentID     uuid.UUID         `json:"document_id"`
	ProjectName    string            `json:"project_name"`
	ContentHash    string            `json:"content_hash"`
	FilePath       string            `json:"file_path"`
	DocumentType   DocumentType      `json:"document_type"`
	Language       string            `json:"language,omitempty"`
	Content        string            `json:"content"`
	EnrichmentType EnrichmentType    `json:"enrichment_type"`
	Priority       Priority          `json:"priority"`
	CorrelationID  uuid.UUID         `json:"correlation_id"`
	IndexedAt      time.Time         `json:"indexed_at"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	RetryCount     int               `json:"retry_count"`
}

// Entity is a single extracted entity from the IntelligenceService.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// EnrichmentResult is what IntelligenceService.Generate returns — no
// embedding vector; that's computed separately in the vector stage.
type EnrichmentResult struct {
	Entities        []Entity `json:"entities"`
	QualityScore    float64  `json:"quality_score"`
	ComplexityScore float64  `json:"complexity_score"`
	Patterns        []string `json:"patterns,omitempty"`
	AntiPatterns    []string `json:"anti_patterns,omitempty"`
	Themes          []string `json:"themes,omitempty"`
	Concepts        []string `json:"concepts,omitempty"`
	OnexType        string   `json:"onex_type,omitempty"`
}

// EnrichmentCompletedEvent is the payload of the enrichment-completed.v1
// topic. Status is "success" for a fully clean run and "partial" when the
// vector sink degraded or failed while the graph write still landed.
type EnrichmentCompletedEvent struct {
	DocumentID        uuid.UUID                    `json:"document_id"`
	CorrelationID     uuid.UUID                    `json:"correlation_id"`
	ProjectName       string                       `json:"project_name"`
	ContentHash       string                       `json:"content_hash"`
	Status            string                       `json:"status"` // success, partial
	PipelineSteps     map[PipelineStage]StepStatus `json:"pipeline_steps"`
	StageDurationsMs  map[PipelineStage]int64      `json:"stage_durations_ms"`
	EntitiesExtracted int                          `json:"entities_extracted"`
	VectorPointID     string                       `json:"vector_point_id,omitempty"`
	CompletedAt       time.Time                    `json:"completed_at"`
}

// EnrichmentFailedEvent is emitted alongside the DLQ record when a document's
// enrichment reaches a terminal failure.
type EnrichmentFailedEvent struct {
	DocumentID    uuid.UUID     `json:"document_id"`
	CorrelationID uuid.UUID     `json:"correlation_id"`
	ProjectName   string        `json:"project_name"`
	FilePath      string        `json:"file_path"`
	FailedStage   PipelineStage `json:"failed_stage"`
	ErrorMessage  string        `json:"error_message"`
	Retriable     bool          `json:"retriable"`
	RetryCount    int           `json:"retry_count"`
	FailedAt      time.Time     `json:"failed_at"`
}

// TaskStatus is the status-tracker entity polled via the producer's HTTP
// surface. TTL is 24h, enforced by the tracker implementation, not this type.
type TaskStatus struct {
	DocumentID        uuid.UUID                    `json:"document_id"`
	CorrelationID     uuid.UUID                    `json:"correlation_id"`
	Status            string                       `json:"status"` // pending, running, success, failed
	StartedAt         time.Time                    `json:"started_at"`
	CompletedAt       *time.Time                   `json:"completed_at,omitempty"`
	ErrorMessage      string                       `json:"error_message,omitempty"`
	ErrorDetails      map[string]string            `json:"error_details,omitempty"`
	PipelineSteps     map[PipelineStage]StepStatus `json:"pipeline_steps"`
	EntitiesExtracted int                          `json:"entities_extracted,omitempty"`
	VectorIndexed     bool                         `json:"vector_indexed,omitempty"`
}

// NewTaskStatus creates a TaskStatus in the "pending" state with all six
// pipeline steps unset, ready to be patched by UpdateStep as the pipeline runs.
func NewTaskStatus(documentID, correlationID uuid.UUID) TaskStatus {
	return TaskStatus{
		DocumentID:    documentID,
		CorrelationID: correlationID,
		Status:        "pending",
		StartedAt:     time.Now(),
		PipelineSteps: make(map[PipelineStage]StepStatus, len(AllStages)),
	}
}
