package intelclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/enrich"
	"github.com/google/uuid"
)

func TestGenerateHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Correlation-ID") == "" {
			t.Fatal("expected correlation id header")
		}
		json.NewEncoder(w).Encode(domain.EnrichmentResult{QualityScore: 0.8})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, time.Second, time.Second)
	result, err := c.Generate(context.Background(), domain.EnrichmentRequestEvent{
		DocumentID: uuid.New(), CorrelationID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QualityScore != 0.8 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGenerate5xxIsRetriable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, time.Second, time.Second)
	_, err := c.Generate(context.Background(), domain.EnrichmentRequestEvent{})
	if !enrich.IsRetriable(err) {
		t.Fatalf("expected 503 to be retriable, got %v", err)
	}
}

func TestGenerate4xxIsNonRetriable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, time.Second, time.Second)
	_, err := c.Generate(context.Background(), domain.EnrichmentRequestEvent{})
	if enrich.IsRetriable(err) {
		t.Fatalf("expected 422 to be non-retriable, got %v", err)
	}
}

func TestGenerateConnectionErrorIsRetriable(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Millisecond, time.Millisecond, time.Millisecond)
	_, err := c.Generate(context.Background(), domain.EnrichmentRequestEvent{})
	if !enrich.IsRetriable(err) {
		t.Fatalf("expected connection error to be retriable, got %v", err)
	}
}
