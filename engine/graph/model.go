// Package graph provides Neo4j knowledge graph operations over the
// project/file/concept topology the enrichment pipeline builds and queries.
package graph

// FileNode is the File label: path is unique within a project.
type FileNode struct {
	Path             string  `json:"path"`
	Project          string  `json:"project"`
	DocumentID       string  `json:"document_id,omitempty"`
	DocumentType     string  `json:"document_type,omitempty"`
	QualityScore     float64 `json:"quality_score"`
	Language         string  `json:"language"`
	ContentHash      string  `json:"content_hash"`
	EnrichedAt       string  `json:"enriched_at,omitempty"`
	EnrichmentStatus string  `json:"enrichment_status,omitempty"`
	IndexedAtUnix    int64   `json:"indexed_at_unix,omitempty"`
}

// ProjectNode is the PROJECT label: name is unique.
type ProjectNode struct {
	Name string `json:"name"`
}

// DirectoryNode is the Directory label.
type DirectoryNode struct {
	Path    string `json:"path"`
	Project string `json:"project"`
}

// ConceptNode is the Concept label.
type ConceptNode struct {
	Name string `json:"name"`
}

// ThemeNode is the Theme label.
type ThemeNode struct {
	Name string `json:"name"`
}

// EntityNode is the Entity label.
type EntityNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Edge is a generic directed relationship between two nodes identified by
// their unique keys (File.path, Project.name, Directory.path, Concept.name,
// Theme.name), carrying one of the relationship types in labels.go.
type Edge struct {
	FromKey string
	ToKey   string
	Type    string
}

// Skeleton is the minimal topology UpsertSkeleton creates ahead of
// enrichment: a Project, its ancestor Directory chain (root first), and the
// leaf File.
type Skeleton struct {
	Project        string
	DirectoryChain []string
	File           FileNode
}

// EnrichmentWrite is the batched write GraphIndexBatch issues in stage 5 for
// the EnrichmentResult stage 2 produced: the File's updated properties plus the
// Concept/Theme/Entity nodes and edges discovered for it.
type EnrichmentWrite struct {
	File     FileNode
	Concepts []string
	Themes   []string
	Entities []EntityNode
	Imports  []string // file paths this file imports
	Defines  []string // entity names this file defines
	Calls    []string // entity names this file calls
}
