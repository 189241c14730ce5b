package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/yourusername/yield-engine/internal/metrics"
)

// resultCache holds recently computed experiment analyses. Metric computation
// walks every event in the window, so repeat dashboard reads of the same
// window are served from here.
type resultCache struct {
	cache *gocache.Cache
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func analysisKey(experimentID uuid.UUID, start, end time.Time) string {
	return fmt.Sprintf("%s|%d|%d", experimentID, start.Unix(), end.Unix())
}

func (rc *resultCache) get(experimentID uuid.UUID, start, end time.Time) (*ExperimentAnalysis, bool) {
	cached, found := rc.cache.Get(analysisKey(experimentID, start, end))
	if !found {
		metrics.AnalysisCacheMisses.Inc()
		return nil, false
	}
	metrics.AnalysisCacheHits.Inc()
	return cached.(*ExperimentAnalysis), true
}

func (rc *resultCache) set(experimentID uuid.UUID, start, end time.Time, analysis *ExperimentAnalysis) {
	rc.cache.Set(analysisKey(experimentID, start, end), analysis, gocache.DefaultExpiration)
}
