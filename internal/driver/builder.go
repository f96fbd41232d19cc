// Package driver builds the dependency graph: it loads each module once,
// runs the transform chain on it and follows its imports, fanning out over
// independent subtrees.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"weld/internal/ctxlog"
	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/project"
	"weld/internal/project/dag"
	"weld/internal/resolve"
	"weld/internal/source"
)

// Options configure a Builder. FileSet, Resolver and Chain are required.
type Options struct {
	FileSet   *source.FileSet
	Resolver  *resolve.Resolver
	Chain     *plugin.Chain
	Externals resolve.Externals
	Reporter  diag.Reporter

	// Jobs bounds concurrent module processing; <= 0 means GOMAXPROCS.
	Jobs int
	// MaxModules is the graph node limit; <= 0 means unbounded.
	MaxModules int
	// Strict turns every module-level failure into a fatal error.
	Strict bool

	Memory   *ModuleCache
	Disk     *DiskCache
	Observer ModuleObserver
}

// Builder drives one or more builds with the same configuration.
type Builder struct {
	opts    Options
	metrics buildMetrics
	// externals goes into every cache key since specifiers record
	// whether they matched at transform time
	externals project.Digest
}

func NewBuilder(opts Options) *Builder {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	return &Builder{opts: opts, externals: project.Sum([]byte(strings.Join(opts.Externals, "\x00")))}
}

// Metrics returns the counters accumulated so far.
func (b *Builder) Metrics() Metrics { return b.metrics.snapshot() }

// run is the state of one Build call.
type run struct {
	*Builder
	graph *dag.Graph
	group *errgroup.Group
	ctx   context.Context
	sem   *semaphore.Weighted

	fatalOnce sync.Once
	fatal     error
}

// Build resolves every entry specifier against the project root and
// traverses the graph from there. The returned graph is frozen.
//
// The error is a *FatalError for entry failures, overflow and strict-mode
// failures, or ctx.Err() when the caller cancelled; in both cases the
// partial graph is still returned. Module-level failures otherwise only
// produce diagnostics.
func (b *Builder) Build(ctx context.Context, entries []string) (*dag.Graph, error) {
	log := ctxlog.FromContext(ctx)
	graph := dag.New(b.opts.MaxModules)
	group, gctx := errgroup.WithContext(ctx)
	r := &run{
		Builder: b,
		graph:   graph,
		group:   group,
		ctx:     gctx,
		sem:     semaphore.NewWeighted(int64(b.opts.Jobs)),
	}

	// every entry is known before any worker starts, so Record.Entry is
	// fixed at claim time
	ids := make([]string, 0, len(entries))
	for _, spec := range entries {
		id, err := r.resolveEntry(gctx, spec)
		if err != nil {
			r.fail(err)
			ids = nil
			break
		}
		graph.AddEntry(id)
		ids = append(ids, id)
	}
	for _, id := range ids {
		if err := r.schedule(id); err != nil {
			r.fail(err)
			break
		}
	}

	waitErr := group.Wait()
	graph.Freeze()
	log.Debug("graph built", "modules", graph.Len(), "metrics", b.Metrics().String())

	if r.fatal != nil {
		return graph, r.fatal
	}
	if err := ctx.Err(); err != nil {
		return graph, err
	}
	return graph, waitErr
}

// fail records the first fatal error and cancels outstanding work.
func (r *run) fail(err error) {
	r.fatalOnce.Do(func() { r.fatal = err })
}

func (r *run) report(d diag.Diagnostic) {
	r.opts.Reporter.Report(d)
}

func (r *run) observe(id string, status ModuleStatus, err error, elapsed time.Duration) {
	if r.opts.Observer != nil {
		r.opts.Observer(ModuleEvent{ID: id, Status: status, Err: err, Elapsed: elapsed})
	}
}

func (r *run) resolveEntry(ctx context.Context, spec string) (string, error) {
	id, external, err := r.resolve(ctx, spec, "")
	if err == nil && external {
		err = fmt.Errorf("entry %q is external", spec)
	}
	if err != nil {
		d := diag.NewError(diag.EntryFailed, source.Span{}, fmt.Sprintf("cannot resolve entry %q: %v", spec, unwrapNotFound(err)))
		d = withProbes(d, err)
		r.report(d)
		return "", &FatalError{Code: diag.EntryFailed, Module: spec, Err: err}
	}
	return id, nil
}

// schedule claims id and, when this caller won the claim, processes it in
// a new goroutine. Cancellation stops new claims.
func (r *run) schedule(id string) error {
	if r.ctx.Err() != nil {
		return nil
	}
	rec, claimed, err := r.graph.Claim(id)
	if err != nil {
		var oe *dag.OverflowError
		if errors.As(err, &oe) {
			r.report(diag.NewError(diag.CycleOverflow, source.Span{},
				fmt.Sprintf("module graph exceeds %d modules (while adding %s)", oe.Limit, oe.ID)).WithModule(id))
			return &FatalError{Code: diag.CycleOverflow, Module: id, Err: err}
		}
		return err
	}
	if !claimed {
		return nil
	}
	r.observe(id, ModuleQueued, nil, 0)
	r.group.Go(func() error {
		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			// cancelled before it started; keep it out of the output
			rec.Failed = true
			return nil
		}
		defer r.sem.Release(1)
		if err := r.process(rec); err != nil {
			r.fail(err)
			return err
		}
		return nil
	})
	return nil
}

// process loads, transforms and links one claimed record. It runs on the
// goroutine that owns rec.
func (r *run) process(rec *dag.Record) error {
	start := time.Now()
	r.metrics.workersActive.Add(1)
	defer r.metrics.workersActive.Add(-1)
	r.observe(rec.ID, ModuleWorking, nil, 0)

	m, err := r.transform(rec)
	if err != nil {
		rec.Failed = true
		r.metrics.workersErrors.Add(1)
		r.observe(rec.ID, ModuleFailed, err, time.Since(start))
		return r.escalate(rec, err)
	}
	rec.Commit(m)
	if !rec.Cached {
		r.metrics.workersCompleted.Add(1)
	}

	for i, spec := range m.Specifiers {
		if spec.External {
			r.metrics.external.Add(1)
			continue
		}
		dep, external, err := r.resolve(r.ctx, spec.Path, rec.ID)
		if external {
			r.metrics.external.Add(1)
			continue
		}
		if err != nil {
			r.metrics.unresolved.Add(1)
			d := diag.NewError(diag.UnresolvedImport, spec.Span,
				fmt.Sprintf("cannot resolve %q from %s", spec.Path, rec.ID)).WithModule(rec.ID).WithStage(spec.Stage)
			r.report(withProbes(d, err))
			if r.opts.Strict {
				return &FatalError{Code: diag.UnresolvedImport, Module: rec.ID, Err: err}
			}
			continue
		}
		r.metrics.resolved.Add(1)
		rec.Deps[i] = dep
		if err := r.schedule(dep); err != nil {
			return err
		}
	}

	status := ModuleDone
	if rec.Cached {
		status = ModuleCached
	}
	r.observe(rec.ID, status, nil, time.Since(start))
	return nil
}

// escalate decides whether a module failure stops the build. The failure
// itself has already been reported.
func (r *run) escalate(rec *dag.Record, err error) error {
	switch {
	case rec.Entry:
		r.report(diag.NewError(diag.EntryFailed, source.Span{},
			fmt.Sprintf("entry module %s failed", rec.ID)).WithModule(rec.ID))
		return &FatalError{Code: diag.EntryFailed, Module: rec.ID, Err: err}
	case r.opts.Strict:
		code := diag.TransformFailed
		var te *plugin.TransformError
		if !errors.As(err, &te) {
			code = diag.IOError
		}
		return &FatalError{Code: code, Module: rec.ID, Err: err}
	}
	return nil
}

// transform loads rec's source and returns the chain's result, from cache
// when the content and chain are unchanged.
func (r *run) transform(rec *dag.Record) (*plugin.Module, error) {
	fileID, err := r.opts.FileSet.Load(rec.ID)
	if err != nil {
		r.report(diag.NewError(diag.IOError, source.Span{},
			fmt.Sprintf("cannot read %s: %v", rec.ID, err)).WithModule(rec.ID))
		return nil, err
	}
	file := r.opts.FileSet.Get(fileID)
	base := plugin.NewModule(rec.ID, fileID, file.Content, rec.Entry)
	key := r.cacheKey(file.Hash, rec.Entry)

	if m, diags, ok := r.opts.Memory.Get(rec.ID, key); ok {
		r.metrics.cacheHits.Add(1)
		rec.Cached = true
		return r.replay(m, diags, base), nil
	}
	r.metrics.cacheMisses.Add(1)
	if r.opts.Disk != nil {
		var payload DiskPayload
		ok, err := r.opts.Disk.Get(key, &payload)
		if err != nil {
			ctxlog.FromContext(r.ctx).Debug("disk cache read failed", "module", rec.ID, "err", err)
		}
		if ok && err == nil && payload.ID == rec.ID {
			r.metrics.diskHits.Add(1)
			rec.Cached = true
			m, diags := diskPayloadToModule(&payload, base)
			r.opts.Memory.Put(rec.ID, key, m, diags)
			return r.replay(m, diags, base), nil
		}
		r.metrics.diskMisses.Add(1)
	}

	var diags []diag.Diagnostic
	collect := diag.ReporterFunc(func(d diag.Diagnostic) {
		diags = append(diags, d)
		r.report(d)
	})
	m := base
	if err := r.opts.Chain.Apply(r.ctx, m, collect, r.opts.Externals.Match); err != nil {
		var te *plugin.TransformError
		if errors.As(err, &te) {
			r.report(te.Diagnostic())
		} else {
			r.report(diag.NewError(diag.TransformFailed, source.Span{}, err.Error()).WithModule(rec.ID))
		}
		return nil, err
	}

	r.opts.Memory.Put(rec.ID, key, m, diags)
	if r.opts.Disk != nil {
		if err := r.opts.Disk.Put(key, moduleToDiskPayload(m, diags)); err != nil {
			ctxlog.FromContext(r.ctx).Debug("disk cache write failed", "module", rec.ID, "err", err)
		}
	}
	return m, nil
}

// cacheKey covers everything a transform result depends on: the content,
// the chain with its environment, the externals and whether the module is
// an entry, since non-entry modules lose their exports.
func (r *run) cacheKey(content [32]byte, entry bool) project.Digest {
	role := project.Sum([]byte("module"))
	if entry {
		role = project.Sum([]byte("entry"))
	}
	return project.Combine(project.Digest(content), r.opts.Chain.Fingerprint(), r.externals, role)
}

// replay re-reports cached diagnostics and re-anchors the module on the
// file id loaded in this run.
func (r *run) replay(m *plugin.Module, diags []diag.Diagnostic, base *plugin.Module) *plugin.Module {
	m.File = base.File
	m.Raw = base.Raw
	m.Entry = base.Entry
	for i := range m.Specifiers {
		if m.Specifiers[i].Span.IsValid() {
			m.Specifiers[i].Span.File = base.File
		}
	}
	for _, d := range diags {
		if d.Primary.IsValid() {
			d.Primary.File = base.File
		}
		r.report(d)
	}
	return m
}

// resolve runs plugin resolve hooks, then the core resolver. external is
// true when a hook or the configuration keeps spec out of the graph.
func (r *run) resolve(ctx context.Context, spec, from string) (id string, external bool, err error) {
	if from != "" && r.opts.Externals.Match(spec) {
		return "", true, nil
	}
	res, stage, err := r.opts.Chain.Resolve(ctx, plugin.ResolveArgs{
		Specifier: spec,
		Importer:  from,
		Probe: func(base string) (string, bool) {
			hit, _, ok := r.opts.Resolver.Probe(base)
			return hit, ok
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("resolve hook %q: %w", stage, err)
	}
	if res.External {
		return "", true, nil
	}
	if res.Path != "" {
		// canonicalize the hook's answer like any other path
		spec = res.Path
	}
	id, err = r.opts.Resolver.Resolve(spec, from)
	return id, false, err
}

func unwrapNotFound(err error) error {
	var nf *resolve.NotFoundError
	if errors.As(err, &nf) {
		return errors.New("no such file")
	}
	return err
}

// withProbes lists the probed paths of a NotFoundError as notes.
func withProbes(d diag.Diagnostic, err error) diag.Diagnostic {
	var nf *resolve.NotFoundError
	if !errors.As(err, &nf) {
		return d
	}
	for _, p := range nf.Probed {
		d = d.WithNote(source.Span{}, "tried "+p)
	}
	return d
}
