package graph

import (
	"context"
	"fmt"

	"github.com/archon-intelligence/enrichment-pipeline/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// EnrichmentBatchSize is the number of enrichment writes merged per
// transaction.
const EnrichmentBatchSize = 50

// GraphStore provides graph operations over the project/file/concept
// topology, built on the generic Neo4j repository for single-label CRUD and
// hand-written batched Cypher for the multi-label enrichment write.
type GraphStore struct {
	driver   neo4j.DriverWithContext
	files    *repo.Neo4jRepo[FileNode, string]
	projects *repo.Neo4jRepo[ProjectNode, string]
	concepts *repo.Neo4jRepo[ConceptNode, string]
	themes   *repo.Neo4jRepo[ThemeNode, string]
	entities *repo.Neo4jRepo[EntityNode, string]
}

// New creates a new GraphStore over the given driver.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{
		driver:   driver,
		files:    newFileRepo(driver),
		projects: newProjectRepo(driver),
		concepts: newConceptRepo(driver),
		themes:   newThemeRepo(driver),
		entities: newEntityRepo(driver),
	}
}

// GetFile returns a File node by path.
func (g *GraphStore) GetFile(ctx context.Context, path string) (FileNode, error) {
	return g.files.Get(ctx, path)
}

// GetProject returns a Project node by name, the read-side counterpart to
// UpsertSkeleton's Project MERGE — used to confirm the topology invariant
// I1 actually produced a reachable Project root, e.g. from the smoke test.
func (g *GraphStore) GetProject(ctx context.Context, name string) (ProjectNode, error) {
	return g.projects.Get(ctx, name)
}

// ListConcepts returns up to limit Concept nodes, sampled by the graph
// health validator to report how much concept tagging has actually
// accumulated alongside its density/coverage/orphan checks.
func (g *GraphStore) ListConcepts(ctx context.Context, limit int) ([]ConceptNode, error) {
	return g.concepts.List(ctx, repo.ListOpts{Limit: limit})
}

// ListThemes returns up to limit Theme nodes, the Theme-side equivalent of
// ListConcepts.
func (g *GraphStore) ListThemes(ctx context.Context, limit int) ([]ThemeNode, error) {
	return g.themes.List(ctx, repo.ListOpts{Limit: limit})
}

// ListEntities returns up to limit Entity nodes, the Entity-side equivalent
// of ListConcepts/ListThemes.
func (g *GraphStore) ListEntities(ctx context.Context, limit int) ([]EntityNode, error) {
	return g.entities.List(ctx, repo.ListOpts{Limit: limit})
}

// UpsertSkeleton MERGEs the Project -> Directory chain -> File topology for a
// newly indexed document (I1: every File is reachable from exactly one
// Project via CONTAINS).
func (g *GraphStore) UpsertSkeleton(ctx context.Context, s Skeleton) error {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx,
			fmt.Sprintf("MERGE (p:%s {name: $name})", LabelProject),
			map[string]any{"name": s.Project}); err != nil {
			return nil, err
		}

		parentLabel, parentKey, parentVal := LabelProject, "name", s.Project
		for _, dirPath := range s.DirectoryChain {
			if _, err := tx.Run(ctx,
				fmt.Sprintf("MERGE (d:%s {path: $path, project: $project})", LabelDirectory),
				map[string]any{"path": dirPath, "project": s.Project}); err != nil {
				return nil, err
			}
			if err := mergeEdge(ctx, tx, parentLabel, parentKey, parentVal, LabelDirectory, "path", dirPath, RelContains); err != nil {
				return nil, err
			}
			parentLabel, parentKey, parentVal = LabelDirectory, "path", dirPath
		}

		if _, err := tx.Run(ctx,
			fmt.Sprintf("MERGE (f:%s {path: $path}) SET f += $props", LabelFile),
			map[string]any{"path": s.File.Path, "props": fileToMap(s.File)}); err != nil {
			return nil, err
		}
		if err := mergeEdge(ctx, tx, parentLabel, parentKey, parentVal, LabelFile, "path", s.File.Path, RelContains); err != nil {
			return nil, err
		}
		return nil, mergeEdge(ctx, tx, LabelFile, "path", s.File.Path, LabelProject, "name", s.Project, RelBelongsTo)
	})
	return err
}

// GraphIndexBatch MERGEs up to EnrichmentBatchSize enrichment writes — File
// properties, Concept/Theme/Entity nodes, and their edges — in one
// transaction. MERGE is idempotent, so partial progress on retry is safe.
func (g *GraphStore) GraphIndexBatch(ctx context.Context, writes []EnrichmentWrite) error {
	if len(writes) > EnrichmentBatchSize {
		writes = writes[:EnrichmentBatchSize]
	}
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, w := range writes {
			if _, err := tx.Run(ctx,
				fmt.Sprintf("MERGE (f:%s {path: $path}) SET f += $props", LabelFile),
				map[string]any{"path": w.File.Path, "props": fileToMap(w.File)}); err != nil {
				return nil, err
			}
			for _, name := range w.Concepts {
				if _, err := tx.Run(ctx, fmt.Sprintf("MERGE (c:%s {name: $name})", LabelConcept), map[string]any{"name": name}); err != nil {
					return nil, err
				}
				if err := mergeEdge(ctx, tx, LabelFile, "path", w.File.Path, LabelConcept, "name", name, RelHasConcept); err != nil {
					return nil, err
				}
			}
			for _, name := range w.Themes {
				if _, err := tx.Run(ctx, fmt.Sprintf("MERGE (t:%s {name: $name})", LabelTheme), map[string]any{"name": name}); err != nil {
					return nil, err
				}
				if err := mergeEdge(ctx, tx, LabelFile, "path", w.File.Path, LabelTheme, "name", name, RelHasTheme); err != nil {
					return nil, err
				}
			}
			for _, ent := range w.Entities {
				if _, err := tx.Run(ctx,
					fmt.Sprintf("MERGE (e:%s {id: $id}) SET e += $props", LabelEntity),
					map[string]any{"id": ent.ID, "props": entityToMap(ent)}); err != nil {
					return nil, err
				}
			}
			for _, path := range w.Imports {
				if err := mergeEdge(ctx, tx, LabelFile, "path", w.File.Path, LabelFile, "path", path, RelImports); err != nil {
					return nil, err
				}
			}
			for _, name := range w.Defines {
				if err := mergeEdge(ctx, tx, LabelFile, "path", w.File.Path, LabelEntity, "name", name, RelDefines); err != nil {
					return nil, err
				}
			}
			for _, name := range w.Calls {
				if err := mergeEdge(ctx, tx, LabelFile, "path", w.File.Path, LabelEntity, "name", name, RelCalls); err != nil {
					return nil, err
				}
			}
		}
		return nil, nil
	})
	return err
}

// StalePending returns File nodes still marked "pending" whose indexed_at
// predates cutoff (unix seconds). The sweeper uses this to find documents
// whose enrichment request was never emitted or never completed.
func (g *GraphStore) StalePending(ctx context.Context, cutoff int64) ([]FileNode, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (f:%s {enrichment_status: 'pending'})
		 WHERE f.indexed_at_unix < $cutoff
		 RETURN f AS n`, LabelFile)
	result, err := sess.Run(ctx, cypher, map[string]any{"cutoff": cutoff})
	if err != nil {
		return nil, err
	}
	return collectFiles(ctx, result)
}

// CompletedFiles returns up to limit File nodes with enrichment_status
// "completed", sampled by the data-integrity validator to check vector
// collection coverage (I2) without a full table scan.
func (g *GraphStore) CompletedFiles(ctx context.Context, limit int) ([]FileNode, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (f:%s {enrichment_status: 'completed'})
		 RETURN f AS n LIMIT $limit`, LabelFile)
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	return collectFiles(ctx, result)
}

// Neighbors returns File nodes within the given traversal depth of path.
func (g *GraphStore) Neighbors(ctx context.Context, path string, depth int) ([]FileNode, error) {
	if depth <= 0 {
		depth = 1
	}
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (start:%s {path: $path})-[*1..%d]-(n:%s)
		 WHERE n.path <> $path
		 RETURN DISTINCT n`, LabelFile, depth, LabelFile)
	result, err := sess.Run(ctx, cypher, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	return collectFiles(ctx, result)
}

// TracePath finds the shortest CONTAINS/BELONGS_TO path between two files.
func (g *GraphStore) TracePath(ctx context.Context, fromPath, toPath string) ([]FileNode, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH p = shortestPath((a:%s {path: $from})-[*]-(b:%s {path: $to}))
		 RETURN nodes(p) AS nodes`, LabelFile, LabelFile)
	result, err := sess.Run(ctx, cypher, map[string]any{"from": fromPath, "to": toPath})
	if err != nil {
		return nil, err
	}
	if !result.Next(ctx) {
		return nil, fmt.Errorf("no path from %s to %s", fromPath, toPath)
	}
	nodesVal, ok := result.Record().Get("nodes")
	if !ok {
		return nil, fmt.Errorf("no nodes in path result")
	}
	nodeList, ok := nodesVal.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected nodes type")
	}
	var files []FileNode
	for _, raw := range nodeList {
		node, ok := raw.(dbtype.Node)
		if !ok {
			continue
		}
		files = append(files, fileFromProps(node.Props))
	}
	return files, nil
}

func mergeEdge(ctx context.Context, tx neo4j.ManagedTransaction, fromLabel, fromKey string, fromVal any, toLabel, toKey string, toVal any, relType string) error {
	cypher := fmt.Sprintf(
		`MATCH (a:%s {%s: $from}), (b:%s {%s: $to})
		 MERGE (a)-[:%s]->(b)`,
		fromLabel, fromKey, toLabel, toKey, sanitizeRelType(relType),
	)
	_, err := tx.Run(ctx, cypher, map[string]any{"from": fromVal, "to": toVal})
	return err
}

func collectFiles(ctx context.Context, result neo4j.ResultWithContext) ([]FileNode, error) {
	var items []FileNode
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			return nil, err
		}
		items = append(items, fileFromProps(node.Props))
	}
	return items, nil
}

// sanitizeRelType ensures a relationship type is a valid, uppercased Cypher
// identifier. Every caller in this package passes one of the RelXxx
// constants; this exists as the single choke point cmd/labellint's AST check
// can point to as the sanctioned way to build a rel-type string.
func sanitizeRelType(t string) string {
	safe := make([]byte, 0, len(t))
	for i := range t {
		c := t[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			safe = append(safe, c)
		}
	}
	if len(safe) == 0 {
		return "RELATED_TO"
	}
	for i := range safe {
		if safe[i] >= 'a' && safe[i] <= 'z' {
			safe[i] -= 32
		}
	}
	return string(safe)
}
