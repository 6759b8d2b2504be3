package enrich

import (
	"context"
	"time"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
)

// GraphDeps collects the graph stage's collaborators.
type GraphDeps struct {
	Store *graph.GraphStore
}

// runGraphIndex MERGEs the file's updated properties plus its Concept/Theme
// nodes and edges in one batched write. Single-document calls always submit a
// batch of one; callers driving multiple documents through the same
// transaction batch up to graph.EnrichmentBatchSize before calling this.
func runGraphIndex(ctx context.Context, st stamped, deps GraphDeps) error {
	entities := make([]graph.EntityNode, 0, len(st.Result.Entities))
	defines := make([]string, 0, len(st.Result.Entities))
	for _, ent := range st.Result.Entities {
		entities = append(entities, graph.EntityNode{
			ID:   st.Request.ProjectName + ":" + ent.Type + ":" + ent.Name,
			Name: ent.Name,
			Type: ent.Type,
		})
		defines = append(defines, ent.Name)
	}
	write := graph.EnrichmentWrite{
		File: graph.FileNode{
			Path:             st.Request.FilePath,
			Project:          st.Request.ProjectName,
			DocumentID:       st.Request.DocumentID.String(),
			DocumentType:     string(st.Request.DocumentType),
			QualityScore:     st.Result.QualityScore,
			Language:         st.Request.Language,
			ContentHash:      st.Request.ContentHash,
			EnrichedAt:       time.Now().UTC().Format(time.RFC3339),
			EnrichmentStatus: string(domain.EnrichmentCompleted),
			IndexedAtUnix:    st.Request.IndexedAt.Unix(),
		},
		Concepts: st.Result.Concepts,
		Themes:   st.Result.Themes,
		Entities: entities,
		Defines:  defines,
	}
	if err := deps.Store.GraphIndexBatch(ctx, []graph.EnrichmentWrite{write}); err != nil {
		return Retriable(err)
	}
	return nil
}
