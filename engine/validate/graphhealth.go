// Package validate implements the pipeline's validators and monitors:
// a graph health checker, a data-integrity checker, and the shared
// scripts-friendly exit-code convention (0 healthy, 1 degraded/warn,
// 2 unhealthy/critical) both share with the pipeline monitor's threshold
// reporting (the smoke test exits 0 or 1 only). Built on engine/graph/metrics.go's
// RelationshipDensity/TreeCoverage/OrphanFiles queries, which this package
// turns into pass/warn/fail thresholds instead of raw numbers.
package validate

import (
	"context"

	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
)

// ExitCode is the scripts-friendly health verdict shared by
// every validator entry point.
type ExitCode int

const (
	ExitHealthy  ExitCode = 0
	ExitWarn     ExitCode = 1
	ExitCritical ExitCode = 2
)

// GraphHealthThresholds are the graph health pass/fail boundaries.
type GraphHealthThresholds struct {
	MinRelationshipDensity float64
	MinTreeCoverage        float64
	MaxOrphanCount         int
}

// DefaultGraphHealthThresholds are the boundaries used by cmd/graph-validate.
var DefaultGraphHealthThresholds = GraphHealthThresholds{
	MinRelationshipDensity: 0.5,
	MinTreeCoverage:        0.95,
	MaxOrphanCount:         10,
}

// ExpectedRelationshipTypes is the set the graph health check asserts is
// present at least once somewhere in the graph.
var ExpectedRelationshipTypes = []string{
	graph.RelContains, graph.RelBelongsTo, graph.RelHasConcept, graph.RelHasTheme,
}

// GraphHealthReport is the full result of CheckGraphHealth: every measured
// value plus which checks passed, so a caller can print a human report
// rather than just the exit code.
type GraphHealthReport struct {
	RelationshipDensity float64
	TreeCoverage        float64
	OrphanCount         int
	OrphanFiles         []string
	MissingRelTypes     []string
	TotalConcepts       int
	TotalThemes         int
	TotalEntities       int
	DensityOK           bool
	CoverageOK          bool
	OrphansOK           bool
	RelationshipTypesOK bool
	Exit                ExitCode
}

// conceptThemeSampleLimit bounds the diagnostic concept/theme counts below
// so a graph health check never turns into an unbounded table scan.
const conceptThemeSampleLimit = 10000

// CheckGraphHealth runs all four graph health checks against store and
// derives the exit code: critical if any single check fails outright
// (more than MaxOrphanCount orphans or a structural relationship type
// entirely missing),
// warn if density or coverage sits below threshold without an outright
// structural break, healthy otherwise.
func CheckGraphHealth(ctx context.Context, store *graph.GraphStore, thresholds GraphHealthThresholds) (GraphHealthReport, error) {
	density, err := store.RelationshipDensity(ctx)
	if err != nil {
		return GraphHealthReport{}, err
	}
	coverage, err := store.TreeCoverage(ctx)
	if err != nil {
		return GraphHealthReport{}, err
	}
	orphans, err := store.OrphanFiles(ctx, thresholds.MaxOrphanCount+1)
	if err != nil {
		return GraphHealthReport{}, err
	}
	relCounts, err := store.RelationshipCounts(ctx)
	if err != nil {
		return GraphHealthReport{}, err
	}
	concepts, err := store.ListConcepts(ctx, conceptThemeSampleLimit)
	if err != nil {
		return GraphHealthReport{}, err
	}
	themes, err := store.ListThemes(ctx, conceptThemeSampleLimit)
	if err != nil {
		return GraphHealthReport{}, err
	}
	entities, err := store.ListEntities(ctx, conceptThemeSampleLimit)
	if err != nil {
		return GraphHealthReport{}, err
	}

	var missing []string
	for _, rel := range ExpectedRelationshipTypes {
		if relCounts[rel] == 0 {
			missing = append(missing, rel)
		}
	}

	report := GraphHealthReport{
		RelationshipDensity: density,
		TreeCoverage:        coverage,
		OrphanCount:         len(orphans),
		OrphanFiles:         orphans,
		MissingRelTypes:     missing,
		TotalConcepts:       len(concepts),
		TotalThemes:         len(themes),
		TotalEntities:       len(entities),
		DensityOK:           density >= thresholds.MinRelationshipDensity,
		CoverageOK:          coverage >= thresholds.MinTreeCoverage,
		OrphansOK:           len(orphans) <= thresholds.MaxOrphanCount,
		RelationshipTypesOK: len(missing) == 0,
	}
	report.Exit = report.exitCode()
	return report, nil
}

func (r GraphHealthReport) exitCode() ExitCode {
	if !r.OrphansOK || !r.RelationshipTypesOK {
		return ExitCritical
	}
	if !r.DensityOK || !r.CoverageOK {
		return ExitWarn
	}
	return ExitHealthy
}
