package event

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

func TestDecodeUnwrapsEnvelopePayload(t *testing.T) {
	correlationID := uuid.New()
	payload := enrichRequestPayload{
		DocumentID:    uuid.New().String(),
		ProjectName:   "demo",
		ContentHash:   "abc123",
		FilePath:      "a.py",
		DocumentType:  "code",
		CorrelationID: correlationID.String(),
	}
	env, err := New(TypeEnrichmentRequested, SchemaVersion, correlationID, EnvelopeSource{Service: "producer"}, payload)
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	_, gotEnv, got, err := Decode[enrichRequestPayload](context.Background(), kafka.Message{Value: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotEnv.EventType != TypeEnrichmentRequested {
		t.Fatalf("event type lost: %q", gotEnv.EventType)
	}
	if gotEnv.CorrelationID != correlationID {
		t.Fatal("correlation id lost")
	}
	if got.ProjectName != "demo" || got.ContentHash != "abc123" {
		t.Fatalf("payload mismatch: %+v", got)
	}
}

func TestDecodeRejectsEnvelopeWithoutPayload(t *testing.T) {
	env := Envelope{EventID: uuid.New(), EventType: TypeEnrichmentCompleted, Version: SchemaVersion}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := Decode[map[string]any](context.Background(), kafka.Message{Value: raw}); err == nil {
		t.Fatal("expected error for envelope without payload")
	}
}

func TestDecodeRejectsBareJSON(t *testing.T) {
	_, _, _, err := Decode[enrichRequestPayload](context.Background(), kafka.Message{Value: []byte("not json")})
	if err == nil {
		t.Fatal("expected error for non-envelope message")
	}
}
