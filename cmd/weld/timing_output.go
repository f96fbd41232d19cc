package main

import (
	"fmt"
	"io"

	"weld/internal/buildpipeline"
	"weld/internal/driver"
)

func printStageTimings(out io.Writer, res *buildpipeline.BuildResult) {
	if out == nil || res == nil {
		return
	}
	for _, p := range res.Report.Phases {
		line := fmt.Sprintf("%-8s %9.1f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			line += "  (" + p.Note + ")"
		}
		_, _ = fmt.Fprintln(out, line)
	}
	_, _ = fmt.Fprintf(out, "%-8s %9.1f ms\n", "total", res.Report.TotalMS)
	printCacheMetrics(out, res.Metrics)
}

func printCacheMetrics(out io.Writer, m driver.Metrics) {
	_, _ = fmt.Fprintf(out, "cache    memory %d/%d  disk %d/%d  (hits/lookups)\n",
		m.MemHits, m.MemHits+m.MemMisses, m.DiskHits, m.DiskHits+m.DiskMisses)
	_, _ = fmt.Fprintf(out, "resolve  %d resolved, %d unresolved, %d external\n",
		m.Resolved, m.Unresolved, m.External)
}
