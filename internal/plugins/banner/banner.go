// Package banner prepends a comment to entry modules.
package banner

import (
	"context"
	"errors"
	"strings"

	"weld/internal/plugin"
	"weld/internal/posmap"
)

const Name = "banner"

type Plugin struct {
	plugin.Base
	text string
}

// New is the registry factory. Options: text (required). Plain text is
// wrapped in a block comment; text that already starts with "//" or "/*"
// is used as is.
func New(opts plugin.Options, _ plugin.Env) (plugin.Plugin, error) {
	if err := opts.Only("text"); err != nil {
		return nil, err
	}
	text, err := opts.String("text", "")
	if err != nil {
		return nil, err
	}
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil, errors.New("text is required")
	}
	if !strings.HasPrefix(text, "//") && !strings.HasPrefix(text, "/*") {
		text = "/*! " + strings.ReplaceAll(text, "*/", "* /") + " */"
	}
	return &Plugin{Base: plugin.NewBase(Name, plugin.PhaseOptimize, plugin.KindJS, plugin.KindTS), text: text + "\n"}, nil
}

// AppliesTo limits the banner to entries so each bundle carries it once.
func (p *Plugin) AppliesTo(m *plugin.Module) bool {
	return m.Entry && p.Base.AppliesTo(m)
}

func (p *Plugin) Transform(_ context.Context, m *plugin.Module, tc *plugin.Context) error {
	rw := posmap.NewRewriter(m.Code)
	rw.Insert(0, p.text)
	return tc.Rewrite(rw, "")
}
