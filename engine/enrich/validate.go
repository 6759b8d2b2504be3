package enrich

import (
	"context"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
)

// ValidateOpts bounds the validate stage.
type ValidateOpts struct {
	MaxContentBytes  int64
	AllowedBasePaths []string
}

// validate rejects malformed payloads, oversized content, and unsafe paths,
// and normalizes the language tag.
func validate(_ context.Context, req domain.EnrichmentRequestEvent, opts ValidateOpts) error {
	doc := domain.Document{
		ProjectName:  req.ProjectName,
		FilePath:     req.FilePath,
		DocumentType: req.DocumentType,
		Content:      req.Content,
	}
	if err := domain.ValidateDocument(doc, opts.MaxContentBytes, opts.AllowedBasePaths); err != nil {
		return err
	}
	return nil
}

// normalizeLanguage applies the unknown-language fallback (mark for
// auto-detect downstream), returning the normalized request.
func normalizeLanguage(req domain.EnrichmentRequestEvent) domain.EnrichmentRequestEvent {
	req.Language = domain.NormalizeLanguage(req.Language)
	return req
}
