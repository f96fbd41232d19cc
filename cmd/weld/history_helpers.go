package main

import (
	"context"
	"time"

	"weld/internal/buildpipeline"
	"weld/internal/config"
	"weld/internal/ctxlog"
	"weld/internal/emit"
	"weld/internal/history"
)

// compareWithHistory looks up the previous sizes of res's outputs and,
// when record is set, stores res as the newest build. A nil map means
// history is disabled for this project.
func compareWithHistory(ctx context.Context, cfg *config.Config, res *buildpipeline.BuildResult, record bool) map[string]history.Output {
	if cfg.HistoryPath == "" || res == nil || res.Aborted {
		return nil
	}
	log := ctxlog.FromContext(ctx)
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		log.Warn("build history unavailable", "err", err)
		return nil
	}
	defer func() { _ = store.Close() }()

	prev := make(map[string]history.Output, len(res.Stats.Outputs))
	for _, o := range res.Stats.Outputs {
		p, ok, err := store.Previous(ctx, o.Path, res.ID)
		if err != nil {
			log.Warn("build history lookup failed", "output", o.Path, "err", err)
			return nil
		}
		if ok {
			prev[o.Path] = p
		}
	}
	if record {
		if err := store.Record(ctx, historyBuild(res, time.Now())); err != nil {
			log.Warn("build history not recorded", "err", err)
		}
	}
	return prev
}

func historyBuild(res *buildpipeline.BuildResult, at time.Time) history.Build {
	b := history.Build{
		ID:      res.ID,
		At:      at,
		Status:  res.Status.String(),
		Modules: res.Modules,
		Outputs: make([]history.Output, 0, len(res.Stats.Outputs)),
	}
	for _, o := range res.Stats.Outputs {
		b.Outputs = append(b.Outputs, historyOutput(o))
	}
	return b
}

func historyOutput(o emit.OutputStat) history.Output {
	return history.Output{Path: o.Path, Raw: o.Raw, Final: o.Final, Gzip: o.Gzip, Brotli: o.Brotli}
}
