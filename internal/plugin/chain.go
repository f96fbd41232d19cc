package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"weld/internal/diag"
	"weld/internal/project"
)

// Stage is an instantiated plugin with the options it was built from.
type Stage struct {
	Plugin  Plugin
	Options Options
}

// Chain runs stages strictly in configured order. It holds no per-module
// state and is safe for concurrent use across modules.
type Chain struct {
	stages      []Stage
	fingerprint project.Digest
}

// NewChain validates that phases never decrease along the list.
func NewChain(stages ...Stage) (*Chain, error) {
	for i := 1; i < len(stages); i++ {
		prev, cur := stages[i-1].Plugin, stages[i].Plugin
		if cur.Phase() < prev.Phase() {
			return nil, &SetupError{
				Code:   diag.InvalidPluginOrder,
				Index:  i,
				Plugin: cur.Name(),
				Err: fmt.Errorf("%s-phase plugin must not follow %s-phase plugin %q",
					cur.Phase(), prev.Phase(), prev.Name()),
			}
		}
	}
	c := &Chain{stages: stages}
	c.fingerprint = c.computeFingerprint()
	return c, nil
}

// Len is the number of stages.
func (c *Chain) Len() int { return len(c.stages) }

// Names lists stage names in order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.stages))
	for i, s := range c.stages {
		out[i] = s.Plugin.Name()
	}
	return out
}

// Fingerprint identifies the chain's configuration for cache keys.
func (c *Chain) Fingerprint() project.Digest { return c.fingerprint }

// bindEnv folds the environment the plugins were built with into the
// fingerprint; plugins like esm emit different code per output format.
func (c *Chain) bindEnv(env Env) {
	data, err := json.Marshal(struct {
		Format     string   `json:"format"`
		Extensions []string `json:"extensions"`
		Externals  []string `json:"externals"`
	}{env.Format, env.Extensions, env.Externals})
	if err != nil {
		data = fmt.Appendf(nil, "%v", env)
	}
	c.fingerprint = project.Combine(c.fingerprint, project.Sum(data))
}

func (c *Chain) computeFingerprint() project.Digest {
	type entry struct {
		Name    string  `json:"name"`
		Phase   string  `json:"phase"`
		Options Options `json:"options,omitempty"`
	}
	entries := make([]entry, len(c.stages))
	for i, s := range c.stages {
		entries[i] = entry{Name: s.Plugin.Name(), Phase: s.Plugin.Phase().String(), Options: s.Options}
	}
	// encoding/json sorts map keys, so equal options hash equally
	data, err := json.Marshal(entries)
	if err != nil {
		data = fmt.Appendf(nil, "%v", entries)
	}
	return project.Sum(data)
}

// Resolve runs resolve hooks in chain order; the first answer wins. The
// returned stage name is empty when every hook declined.
func (c *Chain) Resolve(ctx context.Context, args ResolveArgs) (ResolveResult, string, error) {
	for _, s := range c.stages {
		r, ok := s.Plugin.(Resolver)
		if !ok {
			continue
		}
		res, err := r.Resolve(ctx, args)
		if err != nil {
			return ResolveResult{}, r.Name(), err
		}
		if !res.Declined() {
			return res, r.Name(), nil
		}
	}
	return ResolveResult{}, "", nil
}

// Apply runs every applicable transform stage on m. Inapplicable stages are
// skipped. On failure m keeps the representation of the last successful
// stage and the error is a *TransformError.
func (c *Chain) Apply(ctx context.Context, m *Module, r diag.Reporter, external func(string) bool) error {
	for _, s := range c.stages {
		t, ok := s.Plugin.(Transformer)
		if !ok || !t.AppliesTo(m) {
			continue
		}
		name := t.Name()
		work := m.Clone()
		if err := t.Transform(ctx, work, NewContext(name, work, r, external)); err != nil {
			te := &TransformError{Stage: name, Module: m.ID, Err: err}
			var se *SpanError
			if errors.As(err, &se) {
				te.Span = se.Span
			}
			return te
		}
		*m = *work
	}
	return nil
}
