package enrich

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/fn"
	"github.com/google/uuid"
)

type fakeIntel struct {
	result domain.EnrichmentResult
	errs   []error
	calls  int
}

func (f *fakeIntel) Generate(_ context.Context, _ domain.EnrichmentRequestEvent) (domain.EnrichmentResult, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return domain.EnrichmentResult{}, err
		}
	}
	return f.result, nil
}

type fakeTracker struct {
	mu       sync.Mutex
	started  int
	steps    map[domain.PipelineStage]domain.StepStatus
	failures []string
	success  bool
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{steps: make(map[domain.PipelineStage]domain.StepStatus)}
}

func (f *fakeTracker) RecordStart(_ context.Context, _, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return nil
}

func (f *fakeTracker) UpdateStep(_ context.Context, _ uuid.UUID, stage domain.PipelineStage, status domain.StepStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steps[stage] = status
	return nil
}

func (f *fakeTracker) RecordSuccess(_ context.Context, _ uuid.UUID, _ int, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.success = true
	return nil
}

func (f *fakeTracker) RecordFailure(_ context.Context, _ uuid.UUID, msg string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, msg)
	return nil
}

func (f *fakeTracker) Get(_ context.Context, _ uuid.UUID) (domain.TaskStatus, error) {
	return domain.TaskStatus{}, nil
}

func validRequest() domain.EnrichmentRequestEvent {
	return domain.EnrichmentRequestEvent{
		DocumentID:    uuid.New(),
		ProjectName:   "demo",
		ContentHash:   "cafebabe",
		FilePath:      "src/main.go",
		DocumentType:  domain.DocumentCode,
		Language:      "go",
		Content:       "package main",
		CorrelationID: uuid.New(),
		IndexedAt:     time.Now(),
	}
}

func TestRunFailsAtValidateStage(t *testing.T) {
	tracker := newFakeTracker()
	r := NewRunner(Deps{
		Intelligence: &fakeIntel{},
		Validate:     ValidateOpts{MaxContentBytes: 1024},
		Tracker:      tracker,
	})

	req := validRequest()
	req.FilePath = "../escape.go"
	out := r.Run(context.Background(), req)

	if out.Err == nil {
		t.Fatal("expected validation failure")
	}
	if out.FailedStage != domain.StageValidate {
		t.Fatalf("expected failure at validate, got %s", out.FailedStage)
	}
	if out.Retriable {
		t.Fatal("validation failures must not be retriable")
	}
	if out.Steps[domain.StageValidate] != domain.StepFailed {
		t.Fatalf("expected validate step failed, got %v", out.Steps[domain.StageValidate])
	}
	if len(tracker.failures) != 1 {
		t.Fatalf("expected one recorded failure, got %d", len(tracker.failures))
	}
	if tracker.started != 1 {
		t.Fatalf("expected RecordStart, got %d", tracker.started)
	}
}

func TestRunFailsAtIntelligenceStageNonRetriable(t *testing.T) {
	svc := &fakeIntel{errs: []error{NonRetriable(errors.New("schema rejected"))}}
	r := NewRunner(Deps{
		Intelligence: svc,
		Validate:     ValidateOpts{MaxContentBytes: 1024},
		Tracker:      newFakeTracker(),
	})

	out := r.Run(context.Background(), validRequest())
	if out.FailedStage != domain.StageIntelligence {
		t.Fatalf("expected failure at intelligence, got %s", out.FailedStage)
	}
	if out.Retriable {
		t.Fatal("4xx-class failures must not be retriable")
	}
	if svc.calls != 1 {
		t.Fatalf("non-retriable error must not be retried, got %d calls", svc.calls)
	}
	if out.Steps[domain.StageValidate] != domain.StepSuccess {
		t.Fatal("validate step should have succeeded before the failure")
	}
}

func TestRunIntelligenceRetriesThenGivesUp(t *testing.T) {
	svc := &fakeIntel{errs: []error{
		Retriable(errors.New("timeout")),
		Retriable(errors.New("timeout")),
		Retriable(errors.New("timeout")),
	}}
	r := NewRunner(Deps{
		Intelligence: svc,
		IntelligenceOpts: IntelligenceOpts{
			Retry: fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond},
		},
		Validate: ValidateOpts{MaxContentBytes: 1024},
		Tracker:  newFakeTracker(),
	})

	out := r.Run(context.Background(), validRequest())
	if out.FailedStage != domain.StageIntelligence {
		t.Fatalf("expected failure at intelligence, got %s", out.FailedStage)
	}
	if !out.Retriable {
		t.Fatal("exhausted timeouts should surface as retriable for event re-emission")
	}
	if svc.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", svc.calls)
	}
}

func TestRunRecoversPanicAsInternalError(t *testing.T) {
	r := NewRunner(Deps{
		Intelligence: panicIntel{},
		Validate:     ValidateOpts{MaxContentBytes: 1024},
		Tracker:      newFakeTracker(),
	})

	out := r.Run(context.Background(), validRequest())
	if out.Err == nil {
		t.Fatal("expected recovered panic to surface as an error")
	}
	var ie *InternalError
	if !errors.As(out.Err, &ie) {
		t.Fatalf("expected InternalError, got %T", out.Err)
	}
	if out.Retriable {
		t.Fatal("programmer errors must not be retriable")
	}
}

type panicIntel struct{}

func (panicIntel) Generate(_ context.Context, _ domain.EnrichmentRequestEvent) (domain.EnrichmentResult, error) {
	panic("nil map write")
}

func TestRunVectorSkipsUnchangedContent(t *testing.T) {
	req := validRequest()
	st := stamped{Request: req}

	out, err := runVector(context.Background(), st, VectorDeps{}, req.ContentHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Skipped {
		t.Fatal("matching content hash must skip the vector stage")
	}
	if out.stepStatus() != domain.StepSkipped {
		t.Fatalf("expected skipped step status, got %v", out.stepStatus())
	}
}

func TestVectorStepStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		out  vectorOutcome
		want domain.StepStatus
	}{
		{"clean", vectorOutcome{}, domain.StepSuccess},
		{"skipped", vectorOutcome{Skipped: true}, domain.StepSkipped},
		{"degraded", vectorOutcome{Degraded: true}, domain.StepFailed},
	}
	for _, tc := range cases {
		if got := tc.out.stepStatus(); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRetryRetriableStopsOnNonRetriable(t *testing.T) {
	calls := 0
	result := retryRetriable(context.Background(), fn.RetryOpts{MaxAttempts: 5, InitialWait: time.Millisecond}, func(context.Context) fn.Result[int] {
		calls++
		return fn.Err[int](NonRetriable(errors.New("bad request")))
	})
	if result.IsOk() {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestIsRetriableClassification(t *testing.T) {
	if !IsRetriable(Retriable(errors.New("timeout"))) {
		t.Fatal("retriable wrapper not recognized")
	}
	if IsRetriable(NonRetriable(errors.New("4xx"))) {
		t.Fatal("non-retriable wrapper misclassified")
	}
	if IsRetriable(errors.New("unwrapped")) {
		t.Fatal("unwrapped errors must default to non-retriable")
	}
	if IsRetriable(Internal(errors.New("panic"))) {
		t.Fatal("internal errors must not be retriable")
	}
}

func TestStampIsDeterministic(t *testing.T) {
	req := validRequest()
	result := domain.EnrichmentResult{
		Themes:   []string{"storage", "events"},
		Patterns: []string{"worker-pool", "events"},
		Concepts: []string{"idempotency"},
		OnexType: "module",
	}

	a := stamp(req, result)
	b := stamp(req, result)

	if len(a.Tags) != len(b.Tags) {
		t.Fatalf("tag count differs: %d vs %d", len(a.Tags), len(b.Tags))
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			t.Fatalf("tags differ at %d: %q vs %q", i, a.Tags[i], b.Tags[i])
		}
	}
	want := []string{"events", "idempotency", "storage", "worker-pool"}
	if len(a.Tags) != len(want) {
		t.Fatalf("expected %v, got %v", want, a.Tags)
	}
	for i := range want {
		if a.Tags[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, a.Tags)
		}
	}
	if a.Request.Metadata["onex_type"] != "module" {
		t.Fatal("onex_type not stamped into metadata")
	}
}

func TestStampDoesNotMutateCallerMetadata(t *testing.T) {
	req := validRequest()
	req.Metadata = map[string]string{"origin": "bulk"}

	_ = stamp(req, domain.EnrichmentResult{OnexType: "module"})

	if _, ok := req.Metadata["onex_type"]; ok {
		t.Fatal("stamp must copy the metadata bag, not write through the caller's map")
	}
}
