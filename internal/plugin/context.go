package plugin

import (
	"fmt"

	"fortio.org/safecast"

	"weld/internal/diag"
	"weld/internal/posmap"
	"weld/internal/source"
)

// Context is handed to a Transformer for one module and one stage.
type Context struct {
	stage    string
	module   *Module
	reporter diag.Reporter
	external func(spec string) bool
}

// NewContext is used by the chain and by plugin tests.
func NewContext(stage string, m *Module, r diag.Reporter, external func(string) bool) *Context {
	if r == nil {
		r = diag.NopReporter{}
	}
	return &Context{stage: stage, module: m, reporter: r, external: external}
}

// Stage is the name of the running plugin.
func (c *Context) Stage() string { return c.stage }

// Span maps offsets in the module's current code to a span in the original
// source. Offsets inside synthesized text yield an invalid span.
func (c *Context) Span(start, end int) source.Span {
	m := c.module
	s, ok1 := m.Map.Lookup(u32(start))
	e, ok2 := m.Map.Lookup(u32(max(end-1, start)))
	if !ok1 {
		return source.Span{}
	}
	if ok2 && end > start {
		e++
	} else {
		e = s
	}
	return source.Span{File: m.File, Start: s, End: e}
}

// Report forwards d, filling in stage and module when unset.
func (c *Context) Report(d diag.Diagnostic) {
	if d.Stage == "" {
		d.Stage = c.stage
	}
	if d.Module == "" {
		d.Module = c.module.ID
	}
	c.reporter.Report(d)
}

// Warn reports a warning at sp (which may be the zero span).
func (c *Context) Warn(code diag.Code, sp source.Span, format string, args ...any) {
	c.Report(diag.NewWarning(code, sp, fmt.Sprintf(format, args...)))
}

// Info reports an informational diagnostic.
func (c *Context) Info(code diag.Code, sp source.Span, format string, args ...any) {
	c.Report(diag.New(diag.SevInfo, code, sp, fmt.Sprintf(format, args...)))
}

// IsExternal reports whether spec is configured as external.
func (c *Context) IsExternal(spec string) bool {
	return c.external != nil && c.external(spec)
}

// AddSpecifier declares an outgoing reference found at [start,end) of the
// current code. Duplicates are kept: each occurrence is its own edge.
func (c *Context) AddSpecifier(path string, start, end int) {
	c.module.Specifiers = append(c.module.Specifiers, Specifier{
		Path:     path,
		Span:     c.Span(start, end),
		External: c.IsExternal(path),
		Stage:    c.stage,
	})
}

// Rewrite applies r to the module's code, composes the position map and
// records this stage as the origin. A non-empty kind changes the module kind.
func (c *Context) Rewrite(r *posmap.Rewriter, kind Kind) error {
	m := c.module
	if !r.Changed() {
		if kind != "" && kind != m.Kind {
			m.Kind = kind
			m.Origin = c.stage
		}
		return nil
	}
	out, smap, err := r.Apply()
	if err != nil {
		return err
	}
	m.Code = out
	m.Map = posmap.Compose(smap, m.Map)
	if kind != "" {
		m.Kind = kind
	}
	m.Origin = c.stage
	return nil
}

func u32(n int) uint32 {
	v, err := safecast.Conv[uint32](max(n, 0))
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return v
}
