package ingest

import (
	"hash/fnv"

	"github.com/archon-intelligence/enrichment-pipeline/pkg/config"
)

// ShouldUseAsync implements the rollout-bucket formula
// hash(project) mod 100 < rollout_percent using FNV-1a, deterministic so the
// same project always lands in the same bucket for a given rollout
// percentage.
func ShouldUseAsync(project string, async config.Async) bool {
	if !async.Enabled {
		return false
	}
	if async.RolloutPercent >= 100 {
		return true
	}
	if async.RolloutPercent <= 0 {
		return false
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(project))
	return int(h.Sum32()%100) < async.RolloutPercent
}
