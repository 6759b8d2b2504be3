package enrich

import (
	"sort"

	"github.com/archon-intelligence/enrichment-pipeline/engine/domain"
)

// stamped is the working state handed to stages 4-6 once intelligence
// generation has produced an EnrichmentResult.
type stamped struct {
	Request domain.EnrichmentRequestEvent
	Result  domain.EnrichmentResult
	Tags    []string
}

// stamp merges the EnrichmentResult into the request's metadata bag and
// computes deterministic tags from the result's themes, patterns and
// concepts — no randomness, so re-stamping the same result reproduces the
// same tag set. Pure function, called directly by the pipeline.
func stamp(req domain.EnrichmentRequestEvent, result domain.EnrichmentResult) stamped {
	if req.Metadata == nil {
		req.Metadata = make(map[string]string, 4)
	} else {
		merged := make(map[string]string, len(req.Metadata)+4)
		for k, v := range req.Metadata {
			merged[k] = v
		}
		req.Metadata = merged
	}
	req.Metadata["onex_type"] = result.OnexType

	return stamped{
		Request: req,
		Result:  result,
		Tags:    deriveTags(result),
	}
}

// deriveTags builds a sorted, deduplicated tag list from themes, patterns and
// concepts so it is stable across repeated runs over the same content.
func deriveTags(result domain.EnrichmentResult) []string {
	seen := make(map[string]bool, len(result.Themes)+len(result.Patterns)+len(result.Concepts))
	var tags []string
	add := func(values []string) {
		for _, v := range values {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			tags = append(tags, v)
		}
	}
	add(result.Themes)
	add(result.Patterns)
	add(result.Concepts)
	sort.Strings(tags)
	return tags
}
