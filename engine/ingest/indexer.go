// Package ingest implements the synchronous producer-side indexing step:
// content hashing, idempotent short-circuit, graph skeleton upsert, and
// enrichment-request emission. Heavy enrichment work happens on the async
// consumer fleet; this package only does the synchronous part.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
	"github.com/archon-intelligence/enrichment-pipeline/engine/status"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/config"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/idgen"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/google/uuid"
)

// DocumentLookup resolves the currently-indexed state for (project, path) so
// Index can apply the idempotent short-circuit (I4).
type DocumentLookup func(ctx context.Context, project, filePath string) (domain.Document, bool, error)

// Deps collects the Indexer's collaborators.
type Deps struct {
	Graph    *graph.GraphStore
	Producer *kafkautil.Producer
	Tracker  status.Tracker
	Lookup   DocumentLookup
	Topic    string
	Async    config.Async
	Source   event.EnvelopeSource
}

// Indexer synchronously indexes a document skeleton and emits an enrichment
// request.
type Indexer struct {
	deps Deps
}

// New builds an Indexer over deps.
func New(deps Deps) *Indexer {
	return &Indexer{deps: deps}
}

// IndexResult is what Index returns to the HTTP caller, the
// POST /process/document response body.
type IndexResult struct {
	Success          bool   `json:"success"`
	DocumentID       string `json:"document_id"`
	ProjectID        string `json:"project_id"`
	Status           string `json:"status"`
	StatusURL        string `json:"status_url"`
	Message          string `json:"message"`
	SkeletonIndexed  bool   `json:"skeleton_indexed"`
	EnrichmentQueued bool   `json:"enrichment_queued"`
}

// Index runs the synchronous indexing steps: hash, idempotent
// short-circuit, skeleton upsert, event emission, result.
func (ix *Indexer) Index(ctx context.Context, doc domain.Document) (IndexResult, error) {
	contentHash := idgen.ContentHash(domain.Normalize(doc.Content))
	doc.ContentHash = contentHash

	if ix.deps.Lookup != nil {
		existing, found, err := ix.deps.Lookup(ctx, doc.ProjectName, doc.FilePath)
		if err != nil {
			return IndexResult{}, fmt.Errorf("ingest: lookup: %w", err)
		}
		if found {
			existing.ContentHash = contentHash
			if domain.IsUnchanged(existing) {
				return IndexResult{
					Success:          true,
					DocumentID:       existing.DocumentID.String(),
					ProjectID:        doc.ProjectName,
					Status:           "already_processed",
					StatusURL:        statusURL(existing.DocumentID),
					Message:          "content unchanged, enrichment already completed",
					SkeletonIndexed:  true,
					EnrichmentQueued: false,
				}, nil
			}
		}
	}

	if doc.DocumentID == uuid.Nil {
		doc.DocumentID = idgen.NewDocumentID()
	}
	doc.IndexedAt = time.Now()

	skeleton := graph.Skeleton{
		Project:        doc.ProjectName,
		DirectoryChain: directoryChain(doc.FilePath),
		File: graph.FileNode{
			Path:             doc.FilePath,
			Project:          doc.ProjectName,
			DocumentID:       doc.DocumentID.String(),
			DocumentType:     string(doc.DocumentType),
			Language:         doc.Language,
			ContentHash:      contentHash,
			EnrichmentStatus: string(domain.EnrichmentPending),
			IndexedAtUnix:    doc.IndexedAt.Unix(),
		},
	}
	if err := ix.deps.Graph.UpsertSkeleton(ctx, skeleton); err != nil {
		return IndexResult{}, fmt.Errorf("ingest: upsert skeleton: %w", err)
	}

	correlationID := idgen.NewCorrelationID()
	if ix.deps.Tracker != nil {
		_ = ix.deps.Tracker.RecordStart(ctx, doc.DocumentID, correlationID)
	}

	queued := false
	if ShouldUseAsync(doc.ProjectName, ix.deps.Async) {
		req := domain.EnrichmentRequestEvent{
			DocumentID:     doc.DocumentID,
			ProjectName:    doc.ProjectName,
			ContentHash:    contentHash,
			FilePath:       doc.FilePath,
			DocumentType:   doc.DocumentType,
			Language:       doc.Language,
			Content:        doc.Content,
			EnrichmentType: domain.EnrichmentFull,
			Priority:       domain.PriorityNormal,
			CorrelationID:  correlationID,
			IndexedAt:      doc.IndexedAt,
			Metadata:       doc.Metadata,
		}
		if err := event.Publish(ctx, ix.deps.Producer, ix.deps.Topic, doc.DocumentID.String(), event.TypeEnrichmentRequested, correlationID, ix.deps.Source, req); err != nil {
			// The skeleton write already succeeded; the document stays
			// "pending" and the background sweeper retries emission on its
			// own schedule rather than failing the caller.
			return IndexResult{
				Success:          true,
				DocumentID:       doc.DocumentID.String(),
				ProjectID:        doc.ProjectName,
				Status:           "pending_retry",
				StatusURL:        statusURL(doc.DocumentID),
				Message:          "skeleton indexed, enrichment publish failed and will be retried by the sweeper",
				SkeletonIndexed:  true,
				EnrichmentQueued: false,
			}, nil
		}
		queued = true
	}

	resultStatus := "skeleton_only"
	message := "skeleton indexed, async enrichment disabled for this project"
	if queued {
		resultStatus = "processing_queued"
		message = "document queued for enrichment"
	}
	return IndexResult{
		Success:          true,
		DocumentID:       doc.DocumentID.String(),
		ProjectID:        doc.ProjectName,
		Status:           resultStatus,
		StatusURL:        statusURL(doc.DocumentID),
		Message:          message,
		SkeletonIndexed:  true,
		EnrichmentQueued: queued,
	}, nil
}

func statusURL(documentID uuid.UUID) string {
	return fmt.Sprintf("/process/document/%s/status", documentID.String())
}

// directoryChain splits a slash-separated file path into its ancestor
// directory path prefixes, root first, excluding the file itself.
func directoryChain(filePath string) []string {
	parts := strings.Split(strings.Trim(filePath, "/"), "/")
	if len(parts) <= 1 {
		return nil
	}
	var chain []string
	var prefix string
	for _, p := range parts[:len(parts)-1] {
		if prefix == "" {
			prefix = p
		} else {
			prefix = prefix + "/" + p
		}
		chain = append(chain, prefix)
	}
	return chain
}
