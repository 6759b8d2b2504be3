// Package intelclient implements the only concrete IntelligenceService this
// module ships: a JSON-over-HTTP client against the entity/quality/pattern
// extraction service. Same connect/read timeout shape as pkg/embedding's
// HTTPBackend; unlike HTTPBackend, it also splits errors by status code into
// retriable and non-retriable.
package intelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/enrich"
)

// Client calls an IntelligenceService over HTTP. Connection errors and 5xx
// are retriable, 4xx are not.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL with the given per-call timeouts.
func New(baseURL string, connectTimeout, readTimeout, writeTimeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: connectTimeout + readTimeout + writeTimeout},
	}
}

type generateRequest struct {
	DocumentID   string            `json:"document_id"`
	ProjectName  string            `json:"project_name"`
	ContentHash  string            `json:"content_hash"`
	FilePath     string            `json:"file_path"`
	DocumentType string            `json:"document_type"`
	Language     string            `json:"language,omitempty"`
	Content      string            `json:"content"`
	Enrichment   string            `json:"enrichment_type"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Generate implements enrich.IntelligenceService, posting the request's
// document content to POST /v1/generate and decoding an EnrichmentResult.
func (c *Client) Generate(ctx context.Context, req domain.EnrichmentRequestEvent) (domain.EnrichmentResult, error) {
	body, err := json.Marshal(generateRequest{
		DocumentID:   req.DocumentID.String(),
		ProjectName:  req.ProjectName,
		ContentHash:  req.ContentHash,
		FilePath:     req.FilePath,
		DocumentType: string(req.DocumentType),
		Language:     req.Language,
		Content:      req.Content,
		Enrichment:   string(req.EnrichmentType),
		Metadata:     req.Metadata,
	})
	if err != nil {
		return domain.EnrichmentResult{}, enrich.NonRetriable(fmt.Errorf("intelclient: marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return domain.EnrichmentResult{}, enrich.NonRetriable(fmt.Errorf("intelclient: build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Correlation-ID", req.CorrelationID.String())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Connection errors and context deadline exceeded are both
		// transport-level and retriable.
		return domain.EnrichmentResult{}, enrich.Retriable(fmt.Errorf("intelclient: call %s: %w", c.baseURL, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return domain.EnrichmentResult{}, enrich.Retriable(fmt.Errorf("intelclient: %s returned %d", c.baseURL, resp.StatusCode))
	case resp.StatusCode >= 400:
		return domain.EnrichmentResult{}, enrich.NonRetriable(fmt.Errorf("intelclient: %s returned %d", c.baseURL, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return domain.EnrichmentResult{}, enrich.NonRetriable(fmt.Errorf("intelclient: %s returned unexpected status %d", c.baseURL, resp.StatusCode))
	}

	var result domain.EnrichmentResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.EnrichmentResult{}, enrich.NonRetriable(fmt.Errorf("intelclient: decode response: %w", err))
	}
	return result, nil
}

var _ enrich.IntelligenceService = (*Client)(nil)
