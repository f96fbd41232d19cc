package driver

import (
	"fmt"
	"sync/atomic"
)

// buildMetrics tracks counters for one Build call.
type buildMetrics struct {
	workersActive    atomic.Int32
	workersCompleted atomic.Int64
	workersErrors    atomic.Int64

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	diskHits    atomic.Int64
	diskMisses  atomic.Int64

	resolved   atomic.Int64
	unresolved atomic.Int64
	external   atomic.Int64
}

// Metrics is a snapshot of builder counters.
type Metrics struct {
	Modules    int64
	Failed     int64
	MemHits    int64
	MemMisses  int64
	DiskHits   int64
	DiskMisses int64
	Resolved   int64
	Unresolved int64
	External   int64
}

func (pm *buildMetrics) snapshot() Metrics {
	return Metrics{
		Modules:    pm.workersCompleted.Load(),
		Failed:     pm.workersErrors.Load(),
		MemHits:    pm.cacheHits.Load(),
		MemMisses:  pm.cacheMisses.Load(),
		DiskHits:   pm.diskHits.Load(),
		DiskMisses: pm.diskMisses.Load(),
		Resolved:   pm.resolved.Load(),
		Unresolved: pm.unresolved.Load(),
		External:   pm.external.Load(),
	}
}

func rate(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total) * 100
	}
	return 0
}

func (m Metrics) String() string {
	return fmt.Sprintf(
		"modules: %d processed, %d failed | "+
			"cache: mem=%d/%d (%.1f%%), disk=%d/%d (%.1f%%) | "+
			"imports: %d resolved, %d unresolved, %d external",
		m.Modules, m.Failed,
		m.MemHits, m.MemHits+m.MemMisses, rate(m.MemHits, m.MemMisses),
		m.DiskHits, m.DiskHits+m.DiskMisses, rate(m.DiskHits, m.DiskMisses),
		m.Resolved, m.Unresolved, m.External,
	)
}
