package enrich

import (
	"context"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
	"github.com/archon-intelligence/enrichment-pipeline/engine/vector"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/embedding"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/idgen"
)

// VectorDeps collects the vector stage's collaborators.
type VectorDeps struct {
	Embeddings *embedding.Pool
	Store      *vector.Store
	InstanceID string
}

// vectorOutcome is what the vector stage produces: the point id it wrote (or
// would have written, for a skip) and whether embedding fell back to a
// degraded zero-vector.
type vectorOutcome struct {
	PointID  string
	Vector   []float32
	Degraded bool
	Skipped  bool
}

// runVector embeds the stamped content, upserts a VectorPoint keyed on
// deterministic_uuid(project, content_hash), and skips the embed+upsert
// entirely when the content hash already matches what was last indexed (I4).
// A degraded (fallback zero-vector) embedding still upserts — the stage never
// fails the pipeline on embedding-backend exhaustion.
func runVector(ctx context.Context, st stamped, deps VectorDeps, alreadyIndexedHash string) (vectorOutcome, error) {
	req := st.Request
	if alreadyIndexedHash != "" && alreadyIndexedHash == req.ContentHash {
		return vectorOutcome{Skipped: true}, nil
	}

	embedded := deps.Embeddings.Embed(ctx, deps.InstanceID, req.Content)

	id := idgen.DeterministicID(req.ProjectName, req.ContentHash)
	point := vector.Point{
		ID:     id,
		Vector: embedded.Vector,
		Payload: vector.Payload{
			DocumentID:   req.DocumentID.String(),
			ProjectName:  req.ProjectName,
			FilePath:     req.FilePath,
			Language:     req.Language,
			DocumentType: string(req.DocumentType),
			ContentHash:  req.ContentHash,
			QualityScore: st.Result.QualityScore,
		},
	}
	if err := deps.Store.Upsert(ctx, []vector.Point{point}); err != nil {
		return vectorOutcome{}, Retriable(err)
	}

	return vectorOutcome{PointID: id.String(), Vector: embedded.Vector, Degraded: embedded.Degraded}, nil
}

// stepStatus maps a vectorOutcome to the TaskStatus.pipeline_steps value for
// the vector stage: skipped on idempotency short-circuit, failed on a
// degraded zero-vector fallback (the zero-vector point is stored; nothing
// republishes the document for re-embedding, since the sweeper only picks up
// stale pending documents), success otherwise.
func (v vectorOutcome) stepStatus() domain.StepStatus {
	if v.Skipped {
		return domain.StepSkipped
	}
	if v.Degraded {
		return domain.StepFailed
	}
	return domain.StepSuccess
}
