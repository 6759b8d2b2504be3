package event

import (
	"testing"

	"github.com/google/uuid"
)

type enrichRequestPayload struct {
	DocumentID    string `json:"document_id"`
	ProjectName   string `json:"project_name"`
	ContentHash   string `json:"content_hash"`
	FilePath      string `json:"file_path"`
	DocumentType  string `json:"document_type"`
	CorrelationID string `json:"correlation_id"`
}

func TestTopicFormatsWithAndWithoutAction(t *testing.T) {
	got := Topic("dev", "archon-intelligence", EntityEnrichDocument, "", "v1")
	want := "dev.archon-intelligence.enrich-document.v1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	got2 := Topic("dev", "archon-intelligence", "project", "created", "v1")
	want2 := "dev.archon-intelligence.project.created.v1"
	if got2 != want2 {
		t.Fatalf("got %q, want %q", got2, want2)
	}
}

func TestNewEnvelopeMarshalsPayload(t *testing.T) {
	correlationID := uuid.New()
	payload := enrichRequestPayload{
		DocumentID:    uuid.New().String(),
		ProjectName:   "demo",
		ContentHash:   "abc123",
		FilePath:      "a.py",
		DocumentType:  "code",
		CorrelationID: correlationID.String(),
	}

	env, err := New("enrichment.requested", "v1", correlationID, EnvelopeSource{Service: "producer", InstanceID: "p-0"}, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.CorrelationID != correlationID {
		t.Fatal("expected correlation id to roundtrip")
	}
	if err := Validate(env); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	correlationID := uuid.New()
	payload := map[string]string{"document_id": uuid.New().String()}
	env, err := New("enrichment.requested", "v1", correlationID, EnvelopeSource{Service: "producer"}, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(env); err == nil {
		t.Fatal("expected validation error for missing required fields")
	}
}

func TestValidateAcceptsUnregisteredEventTypeUnchecked(t *testing.T) {
	env, err := New("some.unregistered.type", "v7", uuid.New(), EnvelopeSource{}, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(env); err != nil {
		t.Fatalf("expected unregistered event type to pass unchecked, got %v", err)
	}
}

func TestCatalogTopicParameters(t *testing.T) {
	byName := make(map[string]TopicSpec, len(Catalog))
	for _, spec := range Catalog {
		byName[spec.Name] = spec
	}

	enrich := byName[Topic("dev", "archon-intelligence", EntityEnrichDocument, "", "v1")]
	if enrich.Partitions < 4 {
		t.Errorf("enrich-document.v1 must have >=4 partitions, got %d", enrich.Partitions)
	}
	if enrich.CleanupPolicy != CleanDelete {
		t.Errorf("enrich-document.v1 must use delete cleanup policy, got %s", enrich.CleanupPolicy)
	}

	dlq := byName[Topic("dev", "archon-intelligence", EntityEnrichDocumentDLQ, "", "v1")]
	if dlq.Partitions != 1 {
		t.Errorf("DLQ topic must have exactly 1 partition, got %d", dlq.Partitions)
	}
	if dlq.CleanupPolicy != CleanCompact || !dlq.KeyedOnDocumentID {
		t.Error("DLQ topic must be compact and keyed on document_id")
	}
}
