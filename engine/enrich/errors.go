package enrich

import "errors"

// UpstreamError classifies a downstream-call failure as retriable or not,
// timeouts/5xx/connection errors are Retriable=true; 4xx/validation errors
// are Retriable=false and must not be retried.
type UpstreamError struct {
	Retriable bool
	Wrapped   error
}

func (e *UpstreamError) Error() string { return e.Wrapped.Error() }
func (e *UpstreamError) Unwrap() error { return e.Wrapped }

// Retriable wraps err as a retriable upstream failure (timeout, 5xx,
// connection reset, transient DB unavailability).
func Retriable(err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Retriable: true, Wrapped: err}
}

// NonRetriable wraps err as a non-retriable upstream failure (4xx,
// schema/validation error, data integrity error).
func NonRetriable(err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Retriable: false, Wrapped: err}
}

// IsRetriable reports whether err (or anything it wraps) is marked
// retriable. Validation errors and any error that isn't an *UpstreamError at
// all default to non-retriable.
func IsRetriable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retriable
	}
	return false
}

// InternalError marks a failure as a programmer error (schema mismatch,
// nil deref, a recovered panic). The task fails terminally and the event is
// routed to the DLQ with failure_reason=internal_error. Always non-retriable:
// retrying a bug never fixes it.
type InternalError struct {
	Wrapped error
}

func (e *InternalError) Error() string { return "internal error: " + e.Wrapped.Error() }
func (e *InternalError) Unwrap() error { return e.Wrapped }

// Internal wraps err as a programmer error.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return &InternalError{Wrapped: err}
}
