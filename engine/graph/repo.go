package graph

import (
	"github.com/archon-intelligence/enrichment-pipeline/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

func newFileRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[FileNode, string] {
	return repo.NewNeo4jRepo[FileNode, string](
		driver, LabelFile, fileToMap, fileFromRecord,
		repo.WithIDKey[FileNode, string]("path"),
	)
}

func newProjectRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[ProjectNode, string] {
	return repo.NewNeo4jRepo[ProjectNode, string](
		driver, LabelProject,
		func(p ProjectNode) map[string]any { return map[string]any{"name": p.Name} },
		func(rec *neo4j.Record) (ProjectNode, error) {
			node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
			if err != nil {
				return ProjectNode{}, err
			}
			return ProjectNode{Name: strProp(node.Props, "name")}, nil
		},
		repo.WithIDKey[ProjectNode, string]("name"),
	)
}

func newConceptRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[ConceptNode, string] {
	return repo.NewNeo4jRepo[ConceptNode, string](
		driver, LabelConcept,
		func(c ConceptNode) map[string]any { return map[string]any{"name": c.Name} },
		func(rec *neo4j.Record) (ConceptNode, error) {
			node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
			if err != nil {
				return ConceptNode{}, err
			}
			return ConceptNode{Name: strProp(node.Props, "name")}, nil
		},
		repo.WithIDKey[ConceptNode, string]("name"),
	)
}

func newThemeRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[ThemeNode, string] {
	return repo.NewNeo4jRepo[ThemeNode, string](
		driver, LabelTheme,
		func(t ThemeNode) map[string]any { return map[string]any{"name": t.Name} },
		func(rec *neo4j.Record) (ThemeNode, error) {
			node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
			if err != nil {
				return ThemeNode{}, err
			}
			return ThemeNode{Name: strProp(node.Props, "name")}, nil
		},
		repo.WithIDKey[ThemeNode, string]("name"),
	)
}

func newEntityRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[EntityNode, string] {
	return repo.NewNeo4jRepo[EntityNode, string](
		driver, LabelEntity, entityToMap, entityFromRecord,
		repo.WithIDKey[EntityNode, string]("id"),
	)
}

func fileToMap(f FileNode) map[string]any {
	return map[string]any{
		"path":              f.Path,
		"project":           f.Project,
		"document_id":       f.DocumentID,
		"document_type":     f.DocumentType,
		"quality_score":     f.QualityScore,
		"language":          f.Language,
		"content_hash":      f.ContentHash,
		"enriched_at":       f.EnrichedAt,
		"enrichment_status": f.EnrichmentStatus,
		"indexed_at_unix":   f.IndexedAtUnix,
	}
}

func fileFromRecord(rec *neo4j.Record) (FileNode, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return FileNode{}, err
	}
	return fileFromProps(node.Props), nil
}

func fileFromProps(props map[string]any) FileNode {
	f := FileNode{
		Path:             strProp(props, "path"),
		Project:          strProp(props, "project"),
		DocumentID:       strProp(props, "document_id"),
		DocumentType:     strProp(props, "document_type"),
		Language:         strProp(props, "language"),
		ContentHash:      strProp(props, "content_hash"),
		EnrichedAt:       strProp(props, "enriched_at"),
		EnrichmentStatus: strProp(props, "enrichment_status"),
	}
	if v, ok := props["quality_score"].(float64); ok {
		f.QualityScore = v
	}
	if v, ok := props["indexed_at_unix"].(int64); ok {
		f.IndexedAtUnix = v
	}
	return f
}

func entityToMap(e EntityNode) map[string]any {
	return map[string]any{"id": e.ID, "name": e.Name, "type": e.Type}
}

func entityFromRecord(rec *neo4j.Record) (EntityNode, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return EntityNode{}, err
	}
	props := node.Props
	return EntityNode{
		ID:   strProp(props, "id"),
		Name: strProp(props, "name"),
		Type: strProp(props, "type"),
	}, nil
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
