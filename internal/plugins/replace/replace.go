// Package replace substitutes configured identifiers (such as
// process.env.NODE_ENV) in script modules at build time.
package replace

import (
	"context"
	"errors"
	"sort"
	"strings"

	"weld/internal/plugin"
	"weld/internal/posmap"
)

const Name = "replace"

type pair struct {
	from, to string
}

type Plugin struct {
	plugin.Base
	pairs []pair // longest key first
}

// New is the registry factory. Options: values (table of key -> replacement).
func New(opts plugin.Options, _ plugin.Env) (plugin.Plugin, error) {
	if err := opts.Only("values"); err != nil {
		return nil, err
	}
	values, err := opts.StringMap("values")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.New("values must not be empty")
	}
	p := &Plugin{Base: plugin.NewBase(Name, plugin.PhaseTransform, plugin.KindJS, plugin.KindTS)}
	for k, v := range values {
		if k == "" {
			return nil, errors.New("empty key in values")
		}
		p.pairs = append(p.pairs, pair{from: k, to: v})
	}
	sort.Slice(p.pairs, func(i, j int) bool {
		if len(p.pairs[i].from) != len(p.pairs[j].from) {
			return len(p.pairs[i].from) > len(p.pairs[j].from)
		}
		return p.pairs[i].from < p.pairs[j].from
	})
	return p, nil
}

func (p *Plugin) Transform(_ context.Context, m *plugin.Module, tc *plugin.Context) error {
	code := string(m.Code)
	rw := posmap.NewRewriter(m.Code)
	for i := 0; i < len(code); {
		matched := false
		if i == 0 || !identByte(code[i-1]) {
			for _, pr := range p.pairs {
				if !strings.HasPrefix(code[i:], pr.from) {
					continue
				}
				end := i + len(pr.from)
				if end < len(code) && identByte(code[end]) {
					continue
				}
				rw.Replace(i, end, pr.to)
				i = end
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	return tc.Rewrite(rw, "")
}

func identByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
