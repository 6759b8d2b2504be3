package consumer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateMeter tracks the dispatcher's observed processing rate over a sliding
// window and throttles it against MAX_PROCESSING_RATE, acting as an inbound
// admission gate in front of the worker pool.
type RateMeter struct {
	mu      sync.Mutex
	window  time.Duration
	events  []time.Time
	maxRate float64
	limiter *rate.Limiter
}

// NewRateMeter builds a RateMeter over a 1-second sliding window, gating
// admission with a token bucket sized to maxRate (plus headroom for bursts).
func NewRateMeter(maxRate float64) *RateMeter {
	return &RateMeter{
		window:  time.Second,
		maxRate: maxRate,
		limiter: rate.NewLimiter(rate.Limit(maxRate), int(maxRate)+1),
	}
}

// Observe records one processed event and returns the observed rate
// (events/sec) over the trailing window.
func (m *RateMeter) Observe() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.events = append(m.events, now)
	cutoff := now.Add(-m.window)
	i := 0
	for ; i < len(m.events); i++ {
		if m.events[i].After(cutoff) {
			break
		}
	}
	m.events = m.events[i:]
	return float64(len(m.events)) / m.window.Seconds()
}

// BackoffFor computes the backpressure sleep
// min(5s, ((rate-max_rate)/max_rate)*5s), zero when observedRate is at or
// below maxRate.
func BackoffFor(observedRate, maxRate float64) time.Duration {
	if maxRate <= 0 || observedRate <= maxRate {
		return 0
	}
	frac := (observedRate - maxRate) / maxRate
	d := time.Duration(frac * float64(5*time.Second))
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// Throttle records a processed event and sleeps if the observed rate exceeds
// maxRate, respecting ctx cancellation. Callers use this once per dispatched
// task, between fetch and hand-off to a worker.
func (m *RateMeter) Throttle(ctx context.Context) {
	observed := m.Observe()
	d := BackoffFor(observed, m.maxRate)
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Wait blocks until the token-bucket admission gate allows the next task,
// a second independent line of defense alongside Throttle's sliding-window
// measurement.
func (m *RateMeter) Wait(ctx context.Context) error {
	return m.limiter.Wait(ctx)
}
