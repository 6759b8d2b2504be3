package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NodeCounts returns node counts grouped by label. No command or validator
// in this module calls it.
func (g *GraphStore) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.driver.NewSession(ctx, sessionConfig())
	defer sess.Close(ctx)

	cypher := `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	return collectCounts(ctx, result)
}

// RelationshipCounts returns relationship counts grouped by type.
func (g *GraphStore) RelationshipCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.driver.NewSession(ctx, sessionConfig())
	defer sess.Close(ctx)

	cypher := `MATCH ()-[r]->() RETURN type(r) AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	return collectCounts(ctx, result)
}

// RelationshipDensity returns relationships-per-file, one of the graph
// health validator's thresholds (healthy when >= 0.5).
func (g *GraphStore) RelationshipDensity(ctx context.Context) (float64, error) {
	sess := g.driver.NewSession(ctx, sessionConfig())
	defer sess.Close(ctx)

	cypher := `MATCH (f:` + LabelFile + `)
		OPTIONAL MATCH (f)-[r]-()
		RETURN count(DISTINCT f) AS files, count(r) AS rels`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	if !result.Next(ctx) {
		return 0, nil
	}
	rec := result.Record()
	files, _ := rec.Get("files")
	rels, _ := rec.Get("rels")
	f, _ := files.(int64)
	r, _ := rels.(int64)
	if f == 0 {
		return 0, nil
	}
	return float64(r) / float64(f), nil
}

// OrphanFiles returns the paths of File nodes with no CONTAINS path reaching
// a PROJECT node (I1 violations), capped at limit.
func (g *GraphStore) OrphanFiles(ctx context.Context, limit int) ([]string, error) {
	sess := g.driver.NewSession(ctx, sessionConfig())
	defer sess.Close(ctx)

	cypher := `MATCH (f:` + LabelFile + `)
		WHERE NOT (:` + LabelProject + `)-[:` + RelContains + `*]->(f)
		RETURN f.path AS path LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	var paths []string
	for result.Next(ctx) {
		if p, ok := result.Record().Get("path"); ok {
			if s, ok := p.(string); ok {
				paths = append(paths, s)
			}
		}
	}
	return paths, nil
}

// TreeCoverage returns the fraction of File nodes reachable from some
// PROJECT node via CONTAINS edges (healthy when >= 0.95).
func (g *GraphStore) TreeCoverage(ctx context.Context) (float64, error) {
	sess := g.driver.NewSession(ctx, sessionConfig())
	defer sess.Close(ctx)

	cypher := `MATCH (f:` + LabelFile + `)
		WITH count(f) AS total
		MATCH (f2:` + LabelFile + `) WHERE (:` + LabelProject + `)-[:` + RelContains + `*]->(f2)
		RETURN total, count(f2) AS reachable`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return 0, err
	}
	if !result.Next(ctx) {
		return 1, nil
	}
	rec := result.Record()
	total, _ := rec.Get("total")
	reachable, _ := rec.Get("reachable")
	t, _ := total.(int64)
	r, _ := reachable.(int64)
	if t == 0 {
		return 1, nil
	}
	return float64(r) / float64(t), nil
}

func collectCounts(ctx context.Context, result neo4j.ResultWithContext) (map[string]int64, error) {
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		t, ok := typ.(string)
		if !ok {
			continue
		}
		if c, ok := cnt.(int64); ok {
			counts[t] = c
		}
	}
	return counts, nil
}

func sessionConfig() neo4j.SessionConfig {
	return neo4j.SessionConfig{}
}
