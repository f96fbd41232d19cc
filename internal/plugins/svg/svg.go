// Package svg inlines SVG files as a default-exported string.
package svg

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/posmap"
)

const Name = "svg"

type Plugin struct {
	plugin.Base
	stripXMLDecl bool
}

// New is the registry factory. Options: strip_xml_declaration (default true).
func New(opts plugin.Options, _ plugin.Env) (plugin.Plugin, error) {
	if err := opts.Only("strip_xml_declaration"); err != nil {
		return nil, err
	}
	strip, err := opts.Bool("strip_xml_declaration", true)
	if err != nil {
		return nil, err
	}
	return &Plugin{Base: plugin.NewBase(Name, plugin.PhaseLoad, plugin.KindSVG), stripXMLDecl: strip}, nil
}

func (p *Plugin) Transform(_ context.Context, m *plugin.Module, tc *plugin.Context) error {
	src := m.Code
	rw := posmap.NewRewriter(src)

	start := 0
	if p.stripXMLDecl && bytes.HasPrefix(src, []byte("<?xml")) {
		if end := bytes.Index(src, []byte("?>")); end >= 0 {
			start = end + 2
			for start < len(src) && (src[start] == '\n' || src[start] == '\r' || src[start] == ' ') {
				start++
			}
			rw.Delete(0, start)
		}
	}
	end := len(bytes.TrimRight(src, " \t\r\n"))
	if end < start {
		end = start
	}
	if end < len(src) {
		rw.Delete(end, len(src))
	}
	if start == end {
		tc.Warn(diag.SvgEmpty, tc.Span(0, 0), "%s contains no markup", m.ID)
	}

	rw.Insert(start, `export default "`)
	for i := start; i < end; {
		r, size := utf8.DecodeRune(src[i:])
		if esc, ok := escape(r); ok {
			rw.Replace(i, i+size, esc)
		}
		i += size
	}
	rw.Insert(end, "\";\n")
	return tc.Rewrite(rw, plugin.KindJS)
}

// escape returns the JS string-literal form of r when it cannot appear raw.
func escape(r rune) (string, bool) {
	switch r {
	case '"':
		return `\"`, true
	case '\\':
		return `\\`, true
	case '\n':
		return `\n`, true
	case '\r':
		return `\r`, true
	case '\t':
		return `\t`, true
	case '\u2028', '\u2029':
		return fmt.Sprintf(`\u%04x`, r), true
	}
	if r < 0x20 {
		return fmt.Sprintf(`\x%02x`, r), true
	}
	return "", false
}
