package styles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/source"
)

func apply(t *testing.T, opts plugin.Options, code string) (*plugin.Module, []diag.Diagnostic) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("/p/app.scss", []byte(code))
	m := plugin.NewModule("/p/app.scss", id, fs.Get(id).Content, false)

	p, err := New(opts, plugin.Env{})
	require.NoError(t, err)
	chain, err := plugin.NewChain(plugin.Stage{Plugin: p})
	require.NoError(t, err)

	var diags []diag.Diagnostic
	require.NoError(t, chain.Apply(context.Background(), m, diag.ReporterFunc(func(d diag.Diagnostic) {
		diags = append(diags, d)
	}), nil))
	return m, diags
}

func TestImportsBecomeSpecifiers(t *testing.T) {
	src := "@import \"base.css\";\n@import url('~lib/reset.css');\n.a { content: \"`${x}`\\\\\"; }\n"
	m, diags := apply(t, plugin.Options{"mode": "export"}, src)
	assert.Empty(t, diags)
	require.Len(t, m.Specifiers, 2)
	assert.Equal(t, "./base.css", m.Specifiers[0].Path)
	assert.Equal(t, "lib/reset.css", m.Specifiers[1].Path)
	assert.Equal(t, "base.css", src[m.Specifiers[0].Span.Start:m.Specifiers[0].Span.End])

	assert.Equal(t, plugin.KindJS, m.Kind)
	assert.Equal(t, "styles", m.Origin)
	assert.Equal(t, "export default `.a { content: \"\\`\\${x}\\`\\\\\\\\\"; }\n`;\n", string(m.Code))
}

func TestInjectModeMapsRules(t *testing.T) {
	src := ".btn { color: red; }\n"
	m, _ := apply(t, plugin.Options{}, src)
	assert.Contains(t, string(m.Code), "document.head.appendChild(style)")

	off := len(injectPrefix)
	in, ok := m.Map.Lookup(uint32(off))
	require.True(t, ok)
	assert.Equal(t, uint32(0), in, "first rule maps to the start of the sheet")
}

func TestEmptySheetWarns(t *testing.T) {
	_, diags := apply(t, plugin.Options{}, "  \n")
	require.Len(t, diags, 1)
	assert.Equal(t, diag.CSSEmpty, diags[0].Code)
	assert.Equal(t, diag.SevWarning, diags[0].Severity)
}

func TestBadMode(t *testing.T) {
	_, err := New(plugin.Options{"mode": "link"}, plugin.Env{})
	assert.Error(t, err)
}
