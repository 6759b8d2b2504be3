package enrich

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// CacheDeps collects the cache-warm stage's collaborators. A nil Client
// disables the stage entirely (it is optional).
type CacheDeps struct {
	Client *goredis.Client
	TTL    time.Duration
}

// runCacheWarm pushes the project's top query keys (its tags, the cheapest
// proxy for "what will be searched next") into the shared Redis cache so a
// subsequent query against this project warms from cache instead of cold
// Qdrant/Neo4j reads. Best-effort: any failure here is logged by the caller
// and recorded as pipeline_steps.cache_warm=failed, never as a pipeline
// failure.
func runCacheWarm(ctx context.Context, st stamped, deps CacheDeps) error {
	if deps.Client == nil || len(st.Tags) == 0 {
		return nil
	}
	pipe := deps.Client.Pipeline()
	for _, tag := range st.Tags {
		pipe.SAdd(ctx, "warm:"+st.Request.ProjectName, tag)
	}
	pipe.Expire(ctx, "warm:"+st.Request.ProjectName, deps.TTL)
	_, err := pipe.Exec(ctx)
	return err
}
