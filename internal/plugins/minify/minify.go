// Package minify is a size-only optimizer: it drops comments and collapses
// whitespace. It never renames or reorders code, so its position map stays
// exact for every byte it keeps.
package minify

import (
	"context"

	"weld/internal/plugin"
	"weld/internal/posmap"
)

const Name = "minify"

type Plugin struct {
	plugin.Base
	keepLegal bool
}

// New is the registry factory. Options: keep_legal_comments (default true)
// keeps /*! ... */ blocks.
func New(opts plugin.Options, _ plugin.Env) (plugin.Plugin, error) {
	if err := opts.Only("keep_legal_comments"); err != nil {
		return nil, err
	}
	keep, err := opts.Bool("keep_legal_comments", true)
	if err != nil {
		return nil, err
	}
	return &Plugin{Base: plugin.NewBase(Name, plugin.PhaseOptimize, plugin.KindJS, plugin.KindTS), keepLegal: keep}, nil
}

func (p *Plugin) Transform(_ context.Context, m *plugin.Module, tc *plugin.Context) error {
	rw := posmap.NewRewriter(m.Code)
	s := scanner{src: m.Code, rw: rw, keepLegal: p.keepLegal}
	if err := s.run(); err != nil {
		return &plugin.SpanError{Span: tc.Span(s.errAt, s.errAt+1), Err: err}
	}
	return tc.Rewrite(rw, "")
}
