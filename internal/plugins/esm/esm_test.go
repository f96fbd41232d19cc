package esm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/source"
)

type run struct {
	m     *plugin.Module
	diags []diag.Diagnostic
}

func transform(t *testing.T, name, code string, entry bool, format string) run {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("/p/"+name, []byte(code))
	m := plugin.NewModule("/p/"+name, id, fs.Get(id).Content, entry)

	p, err := New(plugin.Options{}, plugin.Env{Format: format})
	require.NoError(t, err)
	chain, err := plugin.NewChain(plugin.Stage{Plugin: p})
	require.NoError(t, err)

	var r run
	r.m = m
	rep := diag.ReporterFunc(func(d diag.Diagnostic) { r.diags = append(r.diags, d) })
	require.NoError(t, chain.Apply(context.Background(), m, rep, func(s string) bool { return s == "react" }))
	return r
}

func specPaths(m *plugin.Module) []string {
	out := make([]string, len(m.Specifiers))
	for i, s := range m.Specifiers {
		out[i] = s.Path
	}
	return out
}

func TestImportsAreDeclaredAndRemoved(t *testing.T) {
	src := "import b from './b';\nimport { c as cc, d } from \"./c\";\nimport './side.css';\nimport React from 'react';\nconsole.log(b, cc, d);\n"
	r := transform(t, "a.js", src, false, "esm")

	assert.Equal(t, []string{"./b", "./c", "./side.css", "react"}, specPaths(r.m))
	assert.True(t, r.m.Specifiers[3].External)
	assert.Equal(t,
		"const b = __default_b;\nconst cc = c;\nimport React from 'react';\nconsole.log(b, cc, d);\n",
		string(r.m.Code))
	assert.Equal(t, "esm", r.m.Origin)

	// spans point into the original source, inside the quotes
	sp := r.m.Specifiers[1].Span
	assert.Equal(t, "./c", src[sp.Start:sp.End])
}

func TestTypeOnlyImportsDropped(t *testing.T) {
	src := "import type { T } from './types';\nimport { x } from './x';\nexport const y: T = x;\n"
	r := transform(t, "a.ts", src, false, "esm")
	assert.Equal(t, []string{"./x"}, specPaths(r.m))
	assert.Equal(t, "const y: T = x;\n", string(r.m.Code))
}

func TestExportsStrippedOutsideEntry(t *testing.T) {
	src := "export const a = 1;\nexport function f() { return a; }\nexport default 42;\nexport { a as alias };\n"
	r := transform(t, "lib.js", src, false, "esm")
	assert.Equal(t,
		"const a = 1;\nfunction f() { return a; }\nvar __default_lib = 42;\nvar alias = a;\n",
		string(r.m.Code))
}

func TestNamedDefaultDeclaration(t *testing.T) {
	r := transform(t, "widget/index.js", "export default function build() {}\n", false, "esm")
	assert.Equal(t, "function build() {}\nvar __default_widget = build;\n", string(r.m.Code))
}

func TestEntryKeepsExportsInESM(t *testing.T) {
	src := "import { b } from './b';\nexport { b } from './b';\nexport const a = b;\n"
	r := transform(t, "main.js", src, true, "esm")
	assert.Equal(t, "export { b };\nexport const a = b;\n", string(r.m.Code))
	assert.Equal(t, []string{"./b", "./b"}, specPaths(r.m))

	r = transform(t, "main.js", src, true, "iife")
	assert.Equal(t, "const a = b;\n", string(r.m.Code))
}

func TestTopLevelThis(t *testing.T) {
	src := "var g = this;\nfunction f() { return this; }\nconst h = () => this;\nclass C { m() { return this; } }\n"
	r := transform(t, "a.js", src, false, "esm")
	assert.Equal(t,
		"var g = undefined;\nfunction f() { return this; }\nconst h = () => undefined;\nclass C { m() { return this; } }\n",
		string(r.m.Code))
	require.Len(t, r.diags, 2)
	for _, d := range r.diags {
		assert.Equal(t, diag.ThisIsUndefined, d.Code)
		assert.Equal(t, "esm", d.Stage)
		assert.True(t, d.Primary.IsValid())
	}
	assert.Equal(t, "this", src[r.diags[0].Primary.Start:r.diags[0].Primary.End])
}

func TestDefaultName(t *testing.T) {
	tests := map[string]string{
		"./button":          "__default_button",
		"./button.ts":       "__default_button",
		"/p/src/button.tsx": "__default_button",
		"./lib":             "__default_lib",
		"/p/lib/index.ts":   "__default_lib",
		"./my-icon.svg":     "__default_my_icon",
	}
	for in, want := range tests {
		assert.Equal(t, want, DefaultName(in), in)
	}
}

func TestOnlyScriptsApply(t *testing.T) {
	p, err := New(plugin.Options{}, plugin.Env{})
	require.NoError(t, err)
	assert.False(t, p.AppliesTo(&plugin.Module{ID: "/p/a.css", Kind: plugin.KindCSS}))
	assert.True(t, p.AppliesTo(&plugin.Module{ID: "/p/a.ts", Kind: plugin.KindTS}))

	_, err = New(plugin.Options{"bogus": true}, plugin.Env{})
	assert.Error(t, err)
}
