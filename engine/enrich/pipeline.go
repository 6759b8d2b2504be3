package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/status"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/fn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// IndexedHashLookup returns the content hash last successfully indexed for a
// document, if any, so the vector stage can short-circuit on unchanged
// content (I4). An empty string means "never indexed".
type IndexedHashLookup func(ctx context.Context, req domain.EnrichmentRequestEvent) (string, error)

// Deps collects every collaborator the six-stage pipeline calls out to.
type Deps struct {
	Intelligence     IntelligenceService
	IntelligenceOpts IntelligenceOpts
	Validate         ValidateOpts
	Vector           VectorDeps
	Graph            GraphDeps
	Cache            CacheDeps
	Tracker          status.Tracker
	IndexedHash      IndexedHashLookup
	PipelineTotal    time.Duration
}

// Runner executes the six-stage pipeline for a single EnrichmentRequestEvent.
type Runner struct {
	deps Deps
}

// NewRunner builds a Runner over deps.
func NewRunner(deps Deps) *Runner {
	if deps.PipelineTotal <= 0 {
		deps.PipelineTotal = 60 * time.Second
	}
	return &Runner{deps: deps}
}

// joinResult is the common type FanOutResult needs for the stage-4/stage-5
// concurrent join: each goroutine reports its own stage identity alongside
// its status so the caller can record both independently.
type joinResult struct {
	stage  domain.PipelineStage
	status domain.StepStatus
	err    error
	dur    time.Duration
	vector vectorOutcome
}

// Run executes validate -> intelligence -> stamp -> (vector || graph) ->
// cache warm, recording each stage transition to deps.Tracker and enforcing
// deps.PipelineTotal (PIPELINE_TOTAL_TIMEOUT) as a hard deadline across the
// whole run. A panic from any stage (schema mismatch, nil deref) is
// recovered and surfaces as a non-retriable InternalError rather than
// crashing the worker goroutine.
func (r *Runner) Run(ctx context.Context, req domain.EnrichmentRequestEvent) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = newOutcome(req)
			out.FailedStage = domain.StageIntelligence
			out.Err = Internal(fmt.Errorf("panic: %v", rec))
			out.Retriable = false
			out.Steps[out.FailedStage] = domain.StepFailed
			if r.deps.Tracker != nil {
				_ = r.deps.Tracker.RecordFailure(context.Background(), req.DocumentID, out.Err.Error(), map[string]string{"stage": string(out.FailedStage)})
			}
		}
	}()
	return r.run(ctx, req)
}

func (r *Runner) run(ctx context.Context, req domain.EnrichmentRequestEvent) Outcome {
	ctx, cancel := context.WithTimeout(ctx, r.deps.PipelineTotal)
	defer cancel()

	ctx, span := otel.Tracer("engine/enrich").Start(ctx, "enrichment.run",
		trace.WithAttributes(
			attribute.String("document_id", req.DocumentID.String()),
			attribute.String("correlation_id", req.CorrelationID.String()),
			attribute.String("project_name", req.ProjectName),
		))
	defer span.End()

	out := newOutcome(req)
	if r.deps.Tracker != nil {
		_ = r.deps.Tracker.RecordStart(ctx, req.DocumentID, req.CorrelationID)
	}
	mark := time.Now()
	record := func(stage domain.PipelineStage, status domain.StepStatus) {
		out.Steps[stage] = status
		out.Durations[stage] = time.Since(mark)
		mark = time.Now()
		if r.deps.Tracker != nil {
			_ = r.deps.Tracker.UpdateStep(ctx, req.DocumentID, stage, status)
		}
	}
	fail := func(stage domain.PipelineStage, err error) Outcome {
		out.FailedStage = stage
		out.Err = err
		out.Retriable = IsRetriable(err)
		record(stage, domain.StepFailed)
		span.SetStatus(codes.Error, err.Error())
		if r.deps.Tracker != nil {
			_ = r.deps.Tracker.RecordFailure(ctx, req.DocumentID, err.Error(), map[string]string{"stage": string(stage)})
		}
		return out
	}

	req = normalizeLanguage(req)
	out.Request = req
	if err := validate(ctx, req, r.deps.Validate); err != nil {
		return fail(domain.StageValidate, err)
	}
	record(domain.StageValidate, domain.StepSuccess)

	result, err := runIntelligence(ctx, r.deps.Intelligence, req, r.deps.IntelligenceOpts)
	if err != nil {
		return fail(domain.StageIntelligence, err)
	}
	record(domain.StageIntelligence, domain.StepSuccess)
	out.Result = result

	st := stamp(req, result)
	record(domain.StageStamp, domain.StepSuccess)

	var lastHash string
	if r.deps.IndexedHash != nil {
		if h, err := r.deps.IndexedHash(ctx, req); err == nil {
			lastHash = h
		}
	}

	joined := fanOutVectorGraph(ctx, st, r.deps, lastHash)
	for _, jr := range joined {
		out.Steps[jr.stage] = jr.status
		out.Durations[jr.stage] = jr.dur
		if r.deps.Tracker != nil {
			_ = r.deps.Tracker.UpdateStep(ctx, req.DocumentID, jr.stage, jr.status)
		}
		if jr.stage == domain.StageVector {
			if jr.err != nil || jr.vector.Degraded {
				out.Partial = true
			}
			out.Vector = jr.vector.Vector
			out.VectorPointID = jr.vector.PointID
			out.EmbeddingDegraded = jr.vector.Degraded
		}
	}
	mark = time.Now()
	// A graph-stage failure is terminal (the pipeline's terminal write); a
	// vector-stage failure degrades to partial success.
	for _, jr := range joined {
		if jr.err != nil && jr.stage == domain.StageGraph {
			out.FailedStage = domain.StageGraph
			out.Err = jr.err
			out.Retriable = IsRetriable(jr.err)
			span.SetStatus(codes.Error, jr.err.Error())
			if r.deps.Tracker != nil {
				_ = r.deps.Tracker.RecordFailure(ctx, req.DocumentID, jr.err.Error(), map[string]string{"stage": string(domain.StageGraph)})
			}
			return out
		}
	}

	if err := runCacheWarm(ctx, st, r.deps.Cache); err != nil {
		record(domain.StageCacheWarm, domain.StepFailed)
	} else {
		record(domain.StageCacheWarm, domain.StepSuccess)
	}

	if r.deps.Tracker != nil {
		_ = r.deps.Tracker.RecordSuccess(ctx, req.DocumentID, len(result.Entities), out.VectorPointID != "")
	}
	return out
}

// fanOutVectorGraph runs the vector and graph stages concurrently via
// fn.FanOutResult: independent branches over a shared prerequisite. Both
// branches return fn.Ok regardless of their own error, so one branch's
// failure never cancels the other — the outer Collect would otherwise
// discard the branch that did succeed. Each branch carries its own span and
// wall-clock duration.
func fanOutVectorGraph(ctx context.Context, st stamped, deps Deps, lastHash string) []joinResult {
	tracer := otel.Tracer("engine/enrich")
	result := fn.FanOutResult(
		func() fn.Result[joinResult] {
			branchCtx, span := tracer.Start(ctx, "enrichment.vector")
			defer span.End()
			begin := time.Now()
			vOut, err := runVector(branchCtx, st, deps.Vector, lastHash)
			status := vOut.stepStatus()
			if err != nil {
				status = domain.StepFailed
				span.SetStatus(codes.Error, err.Error())
			}
			return fn.Ok(joinResult{stage: domain.StageVector, status: status, err: err, dur: time.Since(begin), vector: vOut})
		},
		func() fn.Result[joinResult] {
			branchCtx, span := tracer.Start(ctx, "enrichment.graph")
			defer span.End()
			begin := time.Now()
			err := runGraphIndex(branchCtx, st, deps.Graph)
			status := domain.StepSuccess
			if err != nil {
				status = domain.StepFailed
				span.SetStatus(codes.Error, err.Error())
			}
			return fn.Ok(joinResult{stage: domain.StageGraph, status: status, err: err, dur: time.Since(begin)})
		},
	)
	out, _ := result.Unwrap()
	return out
}
