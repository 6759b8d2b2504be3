package enrich

import (
	"context"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/fn"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/resilience"
)

// IntelligenceOpts configures the intelligence stage's retry and breaker
// wrapping.
type IntelligenceOpts struct {
	Retry   fn.RetryOpts
	Breaker *resilience.Breaker
}

// runIntelligence calls svc.Generate, retrying when the first failure is
// retriable (timeout, 5xx, connection reset) up to opts.Retry.MaxAttempts
// (see retryRetriable), and tripping
// opts.Breaker on repeated failure. A non-retriable failure (4xx, malformed
// response) returns immediately without consuming a breaker failure beyond
// the one call.
func runIntelligence(ctx context.Context, svc IntelligenceService, req domain.EnrichmentRequestEvent, opts IntelligenceOpts) (domain.EnrichmentResult, error) {
	call := func(ctx context.Context) fn.Result[domain.EnrichmentResult] {
		res, err := svc.Generate(ctx, req)
		if err != nil {
			return fn.Err[domain.EnrichmentResult](err)
		}
		return fn.Ok(res)
	}

	attempt := func(ctx context.Context) fn.Result[domain.EnrichmentResult] {
		if opts.Breaker != nil {
			return resilience.CallResult(opts.Breaker, ctx, call)
		}
		return call(ctx)
	}

	retryOpts := opts.Retry
	if retryOpts.MaxAttempts <= 0 {
		retryOpts = fn.DefaultRetry
	}

	result := retryRetriable(ctx, retryOpts, attempt)
	return result.Unwrap()
}

// retryRetriable calls f once; if that first error is non-retriable per
// IsRetriable (including ErrCircuitOpen, which is not an UpstreamError) it
// returns at once. Otherwise fn.Retry runs the remaining attempts, and those
// are retried whatever error they return: only the first error is checked.
func retryRetriable[T any](ctx context.Context, opts fn.RetryOpts, f func(context.Context) fn.Result[T]) fn.Result[T] {
	result := f(ctx)
	if result.IsOk() {
		return result
	}
	_, err := result.Unwrap()
	if !IsRetriable(err) {
		return result
	}
	remaining := opts
	remaining.MaxAttempts--
	if remaining.MaxAttempts <= 0 {
		return result
	}
	return fn.Retry(ctx, remaining, f)
}
