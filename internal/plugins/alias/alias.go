// Package alias rewrites specifier prefixes before core resolution, e.g.
// "@app/" -> "./src/".
package alias

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"weld/internal/plugin"
)

const Name = "alias"

type entry struct {
	prefix, target string
}

type Plugin struct {
	plugin.Base
	root    string
	entries []entry // longest prefix first
}

// New is the registry factory. Options: prefixes (table of prefix -> target).
// Relative targets are anchored at the project root.
func New(opts plugin.Options, env plugin.Env) (plugin.Plugin, error) {
	if err := opts.Only("prefixes"); err != nil {
		return nil, err
	}
	prefixes, err := opts.StringMap("prefixes")
	if err != nil {
		return nil, err
	}
	if len(prefixes) == 0 {
		return nil, errors.New("prefixes must not be empty")
	}
	p := &Plugin{Base: plugin.NewBase(Name, plugin.PhaseResolve), root: env.Root}
	for k, v := range prefixes {
		p.entries = append(p.entries, entry{prefix: k, target: v})
	}
	sort.Slice(p.entries, func(i, j int) bool {
		if len(p.entries[i].prefix) != len(p.entries[j].prefix) {
			return len(p.entries[i].prefix) > len(p.entries[j].prefix)
		}
		return p.entries[i].prefix < p.entries[j].prefix
	})
	return p, nil
}

func (p *Plugin) Resolve(_ context.Context, args plugin.ResolveArgs) (plugin.ResolveResult, error) {
	for _, e := range p.entries {
		rest, ok := strings.CutPrefix(args.Specifier, e.prefix)
		if !ok {
			continue
		}
		target := filepath.FromSlash(e.target + rest)
		if !filepath.IsAbs(target) {
			target = filepath.Join(p.root, target)
		}
		if args.Probe == nil {
			return plugin.ResolveResult{Path: target}, nil
		}
		if hit, ok := args.Probe(target); ok {
			return plugin.ResolveResult{Path: hit}, nil
		}
		// a matching alias that points nowhere falls through to core resolution,
		// which reports the original specifier
		return plugin.ResolveResult{}, nil
	}
	return plugin.ResolveResult{}, nil
}
