// Package buildpipeline runs a whole build: chain setup, graph, emission and
// output, with progress events and a single BuildResult at the end.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"weld/internal/config"
	"weld/internal/ctxlog"
	"weld/internal/diag"
	"weld/internal/driver"
	"weld/internal/emit"
	"weld/internal/observ"
	"weld/internal/plugin"
	"weld/internal/plugins"
	"weld/internal/resolve"
	"weld/internal/source"
)

// RunOptions are per-invocation settings that are not part of the project
// configuration.
type RunOptions struct {
	Progress ProgressSink
	// Registry defaults to the builtin plugins.
	Registry *plugin.Registry
	// DryRun emits in memory and writes nothing.
	DryRun bool
	// NoCache skips the on-disk transform cache.
	NoCache bool
	// Memory lets successive runs (watch mode) share transform results.
	Memory *driver.ModuleCache
	// Stat replaces os.Stat in the resolver.
	Stat resolve.StatFunc
}

// BuildResult is created once per run and not modified afterwards.
type BuildResult struct {
	ID          string
	Artifacts   []emit.Artifact
	Diagnostics []diag.Diagnostic
	Stats       emit.Stats
	Status      diag.Status
	// Aborted is set when the run stopped before emission: a fatal error,
	// a timeout or cancellation.
	Aborted bool
	Modules int
	Timings Timings
	Report  observ.Report
	Metrics driver.Metrics
	// FileSet holds every loaded source, for rendering diagnostics.
	FileSet *source.FileSet
}

// ExitCode is the process exit status for this result.
func (r *BuildResult) ExitCode() int {
	if r == nil {
		return 1
	}
	return r.Status.ExitCode()
}

type pipeline struct {
	cfg       *config.Config
	opts      RunOptions
	res       *BuildResult
	timer     *observ.Timer
	collector *diag.Collector
}

// Run executes one build. The result is always returned, with every
// diagnostic recorded so far. The error is non-nil only for fatal faults:
// configuration, entry failures, graph overflow, strict-mode aborts, emission
// and I/O. Timeouts and cancellation produce an aborted result and a
// BUILD_TIMEOUT or BUILD_ABORTED diagnostic instead.
func Run(ctx context.Context, cfg *config.Config, opts RunOptions) (*BuildResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing configuration")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Registry == nil {
		opts.Registry = plugins.NewRegistry()
	}
	p := &pipeline{
		cfg:   cfg,
		opts:  opts,
		res:   &BuildResult{ID: uuid.NewString(), FileSet: source.NewFileSetWithBase(cfg.Root)},
		timer: observ.NewTimer(),
		collector: diag.NewCollector(diag.CollectorOptions{
			Policy: cfg.Warnings,
			Max:    cfg.MaxDiagnostics,
			Dedup:  true,
		}),
	}
	log := ctxlog.FromContext(ctx).With("build", p.res.ID)
	ctx = ctxlog.WithLogger(ctx, log)

	err := p.run(ctx)
	if err != nil || p.res.Aborted {
		p.collector.Fail(faultDiagnostic(err))
	}
	p.finish()
	if err != nil {
		log.Debug("build failed", "err", err)
		return p.res, err
	}
	errs, warns, _ := diag.Counts(p.res.Diagnostics)
	log.Info("build finished",
		"status", p.res.Status.String(),
		"aborted", p.res.Aborted,
		"modules", p.res.Modules,
		"outputs", len(p.res.Artifacts),
		"errors", errs,
		"warnings", warns)
	return p.res, nil
}

func (p *pipeline) run(ctx context.Context) error {
	log := ctxlog.FromContext(ctx)
	sink := p.opts.Progress
	cfg := p.cfg

	// config
	idx := p.timer.Begin(string(StageConfig))
	emitStage(sink, StageConfig, StatusWorking, nil, 0)
	chain, cerr := newChain(cfg, p.opts.Registry)
	if cerr != nil {
		p.collector.Record(cerr.Diagnostic())
		p.res.Aborted = true
		emitStage(sink, StageConfig, StatusError, cerr, p.timer.End(idx, "invalid"))
		return cerr
	}
	emitStage(sink, StageConfig, StatusDone, nil, p.timer.End(idx, strings.Join(chain.Names(), ",")))
	log.Debug("plugin chain ready", "stages", chain.Names())

	runCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// graph
	idx = p.timer.Begin(string(StageGraph))
	emitStage(sink, StageGraph, StatusWorking, nil, 0)
	memory := p.opts.Memory
	if memory == nil {
		memory = driver.NewModuleCache(0)
	}
	builder := driver.NewBuilder(driver.Options{
		FileSet: p.res.FileSet,
		Resolver: resolve.New(resolve.Options{
			Root:       cfg.Root,
			Extensions: cfg.Resolve.Extensions,
			Roots:      cfg.Resolve.Roots,
			Stat:       p.opts.Stat,
		}),
		Chain:      chain,
		Externals:  resolve.Externals(cfg.Resolve.External),
		Reporter:   p.collector,
		Jobs:       cfg.Jobs,
		MaxModules: cfg.MaxModules,
		Strict:     cfg.Strict,
		Memory:     memory,
		Disk:       p.diskCache(),
		Observer:   moduleObserver(sink, cfg.Root),
	})
	graph, err := builder.Build(runCtx, cfg.Entries)
	p.res.Metrics = builder.Metrics()
	p.res.Modules = graph.Len()
	elapsed := p.timer.End(idx, fmt.Sprintf("%d modules", graph.Len()))
	if err != nil {
		p.res.Aborted = true
		var fatal *driver.FatalError
		switch {
		case errors.As(err, &fatal):
			emitStage(sink, StageGraph, StatusError, err, elapsed)
			return err
		case ctx.Err() != nil:
			p.collector.Record(diag.NewError(diag.BuildAborted, source.Span{},
				fmt.Sprintf("build cancelled after %d modules", graph.Len())).WithStage(string(StageGraph)))
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			p.collector.Record(diag.NewError(diag.BuildTimeout, source.Span{},
				fmt.Sprintf("build exceeded its %s timeout after %d modules", cfg.Timeout, graph.Len())).WithStage(string(StageGraph)))
		default:
			emitStage(sink, StageGraph, StatusError, err, elapsed)
			return err
		}
		emitStage(sink, StageGraph, StatusError, runCtx.Err(), elapsed)
		return nil
	}
	emitStage(sink, StageGraph, StatusDone, nil, elapsed)

	for _, cycle := range graph.CyclePaths() {
		rel := make([]string, len(cycle))
		for i, id := range cycle {
			rel[i] = displayPath(cfg.Root, id)
		}
		p.collector.Record(diag.NewWarning(diag.CircularDependency, source.Span{},
			"circular dependency: "+strings.Join(rel, " -> ")).
			WithModule(cycle[0]).WithStage(string(StageGraph)))
	}

	// emit
	idx = p.timer.Begin(string(StageEmit))
	emitStage(sink, StageEmit, StatusWorking, nil, 0)
	artifacts, stats, err := emit.Emit(graph, emit.Options{
		Root:      cfg.Root,
		OutDir:    cfg.Output.Dir,
		File:      cfg.Output.File,
		Format:    cfg.Output.Format,
		SourceMap: cfg.Output.SourceMap,
		Name:      cfg.Output.Name,
		FileSet:   p.res.FileSet,
		Reporter:  p.collector,
	})
	elapsed = p.timer.End(idx, fmt.Sprintf("%d outputs", len(artifacts)))
	if err != nil {
		p.res.Aborted = true
		p.collector.Record(diag.NewError(diag.EmitFailed, source.Span{}, err.Error()).WithStage(string(StageEmit)))
		emitStage(sink, StageEmit, StatusError, err, elapsed)
		return err
	}
	p.res.Artifacts = artifacts
	p.res.Stats = stats
	emitStage(sink, StageEmit, StatusDone, nil, elapsed)

	if p.opts.DryRun {
		return nil
	}

	// write
	idx = p.timer.Begin(string(StageWrite))
	emitStage(sink, StageWrite, StatusWorking, nil, 0)
	if err := writeArtifacts(artifacts); err != nil {
		p.collector.Record(diag.NewError(diag.IOError, source.Span{}, err.Error()).WithStage(string(StageWrite)))
		emitStage(sink, StageWrite, StatusError, err, p.timer.End(idx, ""))
		return err
	}
	emitStage(sink, StageWrite, StatusDone, nil, p.timer.End(idx, ""))
	return nil
}

// faultDiagnostic describes the fault that stopped a run; a nil err means
// it was cancelled or timed out.
func faultDiagnostic(err error) diag.Diagnostic {
	var (
		cerr  *config.Error
		fatal *driver.FatalError
	)
	switch {
	case errors.As(err, &cerr):
		return cerr.Diagnostic()
	case errors.As(err, &fatal):
		return diag.NewError(fatal.Code, source.Span{}, err.Error()).WithModule(fatal.Module)
	case err != nil:
		return diag.NewError(diag.IOError, source.Span{}, err.Error())
	}
	return diag.NewError(diag.BuildAborted, source.Span{}, "build stopped before emitting output")
}

func (p *pipeline) finish() {
	p.res.Status, p.res.Diagnostics = p.collector.Finalize()
	for _, ph := range p.timer.Phases() {
		p.res.Timings.Set(Stage(ph.Name), ph.Dur)
	}
	p.res.Report = p.timer.Report()
}

// diskCache opens the configured transform cache. A cache that cannot be
// opened only costs speed, so it is a warning.
func (p *pipeline) diskCache() *driver.DiskCache {
	if p.cfg.CacheDir == "" || p.opts.NoCache {
		return nil
	}
	dc, err := driver.OpenDiskCache(p.cfg.CacheDir)
	if err != nil {
		p.collector.Record(diag.NewWarning(diag.IOError, source.Span{},
			fmt.Sprintf("transform cache disabled: %v", err)).WithStage("cache"))
		return nil
	}
	return dc
}

// newChain instantiates the configured plugins. Every failure is a
// configuration error.
func newChain(cfg *config.Config, reg *plugin.Registry) (*plugin.Chain, *config.Error) {
	specs := make([]plugin.Spec, len(cfg.Plugins))
	for i, ps := range cfg.Plugins {
		specs[i] = plugin.Spec{Name: ps.Name, Options: plugin.Options(ps.Options)}
	}
	chain, err := reg.Instantiate(specs, plugin.Env{
		Root:       cfg.Root,
		Extensions: cfg.Resolve.Extensions,
		Externals:  resolve.Externals(cfg.Resolve.External),
		Format:     string(cfg.Output.Format),
	})
	if err == nil {
		return chain, nil
	}
	var se *plugin.SetupError
	if errors.As(err, &se) {
		return nil, &config.Error{
			Code:  se.Code,
			Path:  cfg.Path,
			Field: fmt.Sprintf("plugins[%d]", se.Index),
			Msg:   fmt.Sprintf("plugin %q", se.Plugin),
			Err:   se.Err,
		}
	}
	return nil, &config.Error{Code: diag.ConfigInvalid, Path: cfg.Path, Field: "plugins", Msg: "invalid plugin chain", Err: err}
}

// writeArtifacts writes every bundle and map through a temporary file so a
// reader never sees a partial output.
func writeArtifacts(artifacts []emit.Artifact) error {
	for _, art := range artifacts {
		if err := os.MkdirAll(filepath.Dir(art.Path), 0o750); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
		if err := writeFileAtomic(art.Path, art.Code); err != nil {
			return err
		}
		if art.Map != nil {
			if err := writeFileAtomic(art.MapPath(), art.Map); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	// #nosec G302 -- bundles are served to browsers and must be world-readable
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
