// Package embedding provides a Backend interface over HTTP model-serving
// endpoints and a multi-instance Pool, so each consumer instance can use its
// own embedding backend and degrade to a zero vector when that backend still
// fails after its retries, rather than fail the whole enrichment.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/pkg/resilience"
)

// Backend embeds a single text into a float32 vector.
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPBackend talks to an Ollama-compatible /api/embeddings endpoint.
type HTTPBackend struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewHTTPBackend builds a Backend against baseURL using model.
func NewHTTPBackend(baseURL, model string, connectTimeout, readTimeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: connectTimeout + readTimeout,
		},
	}
}

type embedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed implements Backend.
func (c *HTTPBackend) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedReq{Model: c.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding backend %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding backend %s: status %d", c.baseURL, resp.StatusCode)
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding backend %s: decode: %w", c.baseURL, err)
	}

	out := make([]float32, len(result.Embedding))
	for i, v := range result.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// Pool holds multiple named backends (one per consumer instance) and sends
// each call to a single one of them. Call starts are paced by a shared
// token-bucket limiter (MaxConcurrent tokens per second); the number of calls
// in flight at once is not bounded. When the chosen backend still fails after
// its retries, Pool returns a zero-vector + degraded flag rather than failing
// the pipeline stage outright.
type Pool struct {
	backends   map[string]Backend
	order      []string
	dimensions int
	limiter    *resilience.Limiter
	retries    int
}

// PoolOpts configures a Pool.
type PoolOpts struct {
	Dimensions    int
	MaxConcurrent int
	Retries       int
}

// NewPool builds a Pool from a map of instance id to Backend.
func NewPool(backends map[string]Backend, opts PoolOpts) *Pool {
	order := make([]string, 0, len(backends))
	for id := range backends {
		order = append(order, id)
	}
	burst := opts.MaxConcurrent
	if burst <= 0 {
		burst = 1
	}
	return &Pool{
		backends:   backends,
		order:      order,
		dimensions: opts.Dimensions,
		limiter:    resilience.NewLimiter(resilience.LimiterOpts{Rate: float64(burst), Burst: burst}),
		retries:    opts.Retries,
	}
}

// EmbedResult carries the vector plus whether it is a real embedding or a
// degraded zero-vector fallback, so downstream callers can flag the
// document for re-embedding later.
type EmbedResult struct {
	Vector   []float32
	Degraded bool
	Backend  string
}

// Embed routes text to the named instance's backend (falling back to any
// available backend if the named one is missing), retrying up to Retries
// times, and returns a degraded zero-vector on exhaustion.
func (p *Pool) Embed(ctx context.Context, instanceID, text string) EmbedResult {
	backend, ok := p.backends[instanceID]
	if !ok {
		backend, ok = p.anyBackend()
	}
	if !ok {
		return p.degraded("")
	}

	var lastErr error
	attempts := p.retries + 1
	for i := 0; i < attempts; i++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return p.degraded(instanceID)
		}
		vec, err := backend.Embed(ctx, text)
		if err == nil {
			return EmbedResult{Vector: vec, Backend: instanceID}
		}
		lastErr = err
	}
	_ = lastErr
	return p.degraded(instanceID)
}

func (p *Pool) anyBackend() (Backend, bool) {
	if len(p.order) == 0 {
		return nil, false
	}
	return p.backends[p.order[0]], true
}

func (p *Pool) degraded(instanceID string) EmbedResult {
	return EmbedResult{
		Vector:   make([]float32, p.dimensions),
		Degraded: true,
		Backend:  instanceID,
	}
}
