package validate

import (
	"context"

	"github.com/archon-intelligence/enrichment-pipeline/engine/graph"
	"github.com/archon-intelligence/enrichment-pipeline/engine/vector"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/idgen"
)

// IntegrityThresholds are the minimum pass rates for each sampled component
// check, expressed as a fraction of the sample.
type IntegrityThresholds struct {
	MinVectorCoverage    float64
	MinPathRetrievalRate float64
	MinMetadataAccuracy  float64
	SampleSize           int
}

// DefaultIntegrityThresholds requires at least 99% of sampled documents to
// round-trip correctly for each component.
var DefaultIntegrityThresholds = IntegrityThresholds{
	MinVectorCoverage:    0.99,
	MinPathRetrievalRate: 0.99,
	MinMetadataAccuracy:  0.99,
	SampleSize:           200,
}

// componentResult is one of the four data-integrity components.
type componentResult struct {
	Name    string
	Healthy bool
	Rate    float64
	Sampled int
}

// IntegrityReport is the full result of CheckDataIntegrity.
type IntegrityReport struct {
	VectorCoverage      componentResult
	PathRetrieval       componentResult
	MetadataAccuracy    componentResult
	DimensionConsistent componentResult
	HealthyCount        int
	Exit                ExitCode
}

// CheckDataIntegrity samples up to thresholds.SampleSize completed files and
// checks: (1) each has a matching VectorPoint (I2 coverage), (2) scrolling
// the vector collection filtered by that file's path returns it back
// (path-retrieval rate), (3) filtering by project_name returns at least one
// point for each sampled project (metadata-filter accuracy; the returned
// points' payloads are not inspected), and
// (4) every sampled point's vector length matches the configured dimension.
// Exit is healthy if >=3 of the four components pass, warn at 2, critical
// at <=1.
func CheckDataIntegrity(ctx context.Context, g *graph.GraphStore, v *vector.Store, dimensions int, thresholds IntegrityThresholds) (IntegrityReport, error) {
	files, err := g.CompletedFiles(ctx, thresholds.SampleSize)
	if err != nil {
		return IntegrityReport{}, err
	}
	if len(files) == 0 {
		empty := componentResult{Rate: 1, Healthy: true}
		report := IntegrityReport{VectorCoverage: empty, PathRetrieval: empty, MetadataAccuracy: empty, DimensionConsistent: empty}
		report.HealthyCount = 4
		report.Exit = ExitHealthy
		return report, nil
	}

	var covered, pathHits, dimOK int
	for _, f := range files {
		id := idgen.DeterministicID(f.Project, f.ContentHash)
		exists, err := v.Exists(ctx, id.String())
		if err != nil {
			continue
		}
		if exists {
			covered++
		}

		ids, _, err := v.Scroll(ctx, map[string]string{"file_path": f.Path}, 1, "")
		if err == nil && len(ids) > 0 {
			pathHits++
		}
	}

	var metadataAccurate int
	byProject := make(map[string][]graph.FileNode)
	for _, f := range files {
		byProject[f.Project] = append(byProject[f.Project], f)
	}
	sampledProjects := 0
	for project, projectFiles := range byProject {
		sampledProjects++
		hits, _, err := v.Scroll(ctx, map[string]string{"project_name": project}, uint32(len(projectFiles)+10), "")
		if err != nil {
			continue
		}
		if len(hits) > 0 {
			metadataAccurate++
		}
	}
	if sampledProjects == 0 {
		sampledProjects = 1
		metadataAccurate = 1
	}

	for _, f := range files {
		id := idgen.DeterministicID(f.Project, f.ContentHash)
		hits, err := v.Search(ctx, zeroVector(dimensions), 1, map[string]string{"content_hash": f.ContentHash})
		if err != nil {
			continue
		}
		for _, h := range hits {
			if h.ID == id.String() {
				dimOK++
				break
			}
		}
	}

	n := float64(len(files))
	report := IntegrityReport{
		VectorCoverage:      rateComponent("vector_coverage", float64(covered)/n, thresholds.MinVectorCoverage, len(files)),
		PathRetrieval:       rateComponent("path_retrieval", float64(pathHits)/n, thresholds.MinPathRetrievalRate, len(files)),
		MetadataAccuracy:    rateComponent("metadata_accuracy", float64(metadataAccurate)/float64(sampledProjects), thresholds.MinMetadataAccuracy, sampledProjects),
		DimensionConsistent: rateComponent("dimension_consistency", float64(dimOK)/n, thresholds.MinVectorCoverage, len(files)),
	}
	report.HealthyCount = countHealthy(report)
	report.Exit = exitForHealthyCount(report.HealthyCount)
	return report, nil
}

func rateComponent(name string, rate, threshold float64, sampled int) componentResult {
	return componentResult{Name: name, Healthy: rate >= threshold, Rate: rate, Sampled: sampled}
}

func countHealthy(r IntegrityReport) int {
	n := 0
	for _, c := range []componentResult{r.VectorCoverage, r.PathRetrieval, r.MetadataAccuracy, r.DimensionConsistent} {
		if c.Healthy {
			n++
		}
	}
	return n
}

func exitForHealthyCount(n int) ExitCode {
	switch {
	case n >= 3:
		return ExitHealthy
	case n == 2:
		return ExitWarn
	default:
		return ExitCritical
	}
}

func zeroVector(dims int) []float32 {
	return make([]float32, dims)
}
