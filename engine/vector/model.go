// Package vector provides the Qdrant-backed vector index adapter: collection
// lifecycle, deterministic-ID upsert, and filtered search/scroll.
package vector

import "github.com/google/uuid"

// Point is a single vector upserted into the archon_vectors collection. ID is
// always idgen.DeterministicID(project, content_hash) so re-ingesting
// unchanged content upserts the same point rather than creating a duplicate
// (I2, I4).
type Point struct {
	ID      uuid.UUID
	Vector  []float32
	Payload Payload
}

// Payload is the fixed set of metadata fields stored alongside a Point.
type Payload struct {
	DocumentID   string  `json:"document_id"`
	ProjectName  string  `json:"project_name"`
	FilePath     string  `json:"file_path"`
	Language     string  `json:"language"`
	DocumentType string  `json:"document_type"`
	ContentHash  string  `json:"content_hash"`
	QualityScore float64 `json:"quality_score"`
}

// SearchHit is a single k-NN search result.
type SearchHit struct {
	ID      string
	Score   float32
	Payload map[string]string
}
