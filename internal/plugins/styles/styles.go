// Package styles turns stylesheets into JavaScript that injects them into
// the document at load time, and declares their @import dependencies.
package styles

import (
	"context"
	"regexp"
	"strings"

	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/posmap"
)

const Name = "styles"

const (
	ModeInject = "inject"
	ModeExport = "export"
)

const injectPrefix = "(function (css) {\n" +
	"  if (typeof document === \"undefined\" || !css) return;\n" +
	"  var style = document.createElement(\"style\");\n" +
	"  style.textContent = css;\n" +
	"  document.head.appendChild(style);\n" +
	"})(`"

// @import "x.css"; @import url(x.css); @import url('~pkg/x.css') screen;
var importRe = regexp.MustCompile(`@import\s+(?:url\(\s*)?(["']?)([^"')\s;]+)(["']?)\s*\)?[^;\n]*;[ \t]*\n?`)

type Plugin struct {
	plugin.Base
	mode string
}

// New is the registry factory. Options: mode ("inject" or "export").
func New(opts plugin.Options, _ plugin.Env) (plugin.Plugin, error) {
	if err := opts.Only("mode"); err != nil {
		return nil, err
	}
	mode, err := opts.String("mode", ModeInject)
	if err != nil {
		return nil, err
	}
	if mode != ModeInject && mode != ModeExport {
		return nil, errBadMode(mode)
	}
	return &Plugin{Base: plugin.NewBase(Name, plugin.PhaseLoad, plugin.KindCSS), mode: mode}, nil
}

type errBadMode string

func (e errBadMode) Error() string {
	return "mode " + string(e) + ": want \"inject\" or \"export\""
}

func (p *Plugin) Transform(_ context.Context, m *plugin.Module, tc *plugin.Context) error {
	src := m.Code
	rw := posmap.NewRewriter(src)

	covered := make([]bool, len(src))
	for _, loc := range importRe.FindAllSubmatchIndex(src, -1) {
		pathStart, pathEnd := loc[4], loc[5]
		tc.AddSpecifier(importSpecifier(string(src[pathStart:pathEnd])), pathStart, pathEnd)
		// the imported sheet injects itself
		rw.Delete(loc[0], loc[1])
		for i := loc[0]; i < loc[1]; i++ {
			covered[i] = true
		}
	}

	body := strings.TrimSpace(string(importRe.ReplaceAll(src, nil)))
	if body == "" && len(m.Specifiers) == 0 {
		tc.Warn(diag.CSSEmpty, tc.Span(0, 0), "stylesheet %s is empty", m.ID)
	}

	if p.mode == ModeExport {
		rw.Insert(0, "export default `")
	} else {
		rw.Insert(0, injectPrefix)
	}
	for i, c := range src {
		if covered[i] {
			continue
		}
		switch {
		case c == '\\':
			rw.Replace(i, i+1, `\\`)
		case c == '`':
			rw.Replace(i, i+1, "\\`")
		case c == '$' && i+1 < len(src) && src[i+1] == '{':
			rw.Replace(i, i+1, `\$`)
		}
	}
	if p.mode == ModeExport {
		rw.Insert(len(src), "`;\n")
	} else {
		rw.Insert(len(src), "`);\n")
	}
	return tc.Rewrite(rw, plugin.KindJS)
}

// importSpecifier maps a CSS import path onto a module specifier: "~pkg/x"
// is a bare package path, anything else is relative to the sheet.
func importSpecifier(path string) string {
	if rest, ok := strings.CutPrefix(path, "~"); ok {
		return rest
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || strings.HasPrefix(path, "/") {
		return path
	}
	return "./" + path
}
