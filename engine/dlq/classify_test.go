package dlq

import (
	"context"
	"errors"
	"testing"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/enrich"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/resilience"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Category
	}{
		{"validation", domain.NewValidationError("file_path", "../x", domain.ErrUnsafePath), CategoryDataQuality},
		{"wrapped validation", enrich.NonRetriable(domain.NewValidationError("content", "", domain.ErrContentTooLarge)), CategoryDataQuality},
		{"circuit open", resilience.ErrCircuitOpen, CategoryServiceDown},
		{"internal", enrich.Internal(errors.New("nil deref")), CategoryInternal},
		{"nil", nil, CategoryInternal},
		{"plain timeout", errors.New("dial tcp: i/o timeout"), CategoryTransient},
		{"retriable upstream", enrich.Retriable(errors.New("503")), CategoryTransient},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("%s: Classify = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestReplaySkipsDataQuality(t *testing.T) {
	p := NewProcessor(nil, "enrich", nil, event.EnvelopeSource{Service: "dlq-processor"})
	entry := Entry{FailureCategory: CategoryDataQuality}
	if err := p.Replay(context.Background(), entry); err != nil {
		t.Fatalf("data_quality replay must be a no-op, got %v", err)
	}
}
