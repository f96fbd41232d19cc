package plugin

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/diag"
	"weld/internal/posmap"
	"weld/internal/project"
	"weld/internal/source"
)

// prefixer inserts text at offset 0.
type prefixer struct {
	Base
	text string
}

func (p prefixer) Transform(_ context.Context, m *Module, tc *Context) error {
	rw := posmap.NewRewriter(m.Code)
	rw.Insert(0, p.text)
	return tc.Rewrite(rw, "")
}

// deleter removes the first occurrence of needle.
type deleter struct {
	Base
	needle string
}

func (d deleter) Transform(_ context.Context, m *Module, tc *Context) error {
	i := bytes.Index(m.Code, []byte(d.needle))
	if i < 0 {
		return nil
	}
	rw := posmap.NewRewriter(m.Code)
	rw.Delete(i, i+len(d.needle))
	return tc.Rewrite(rw, "")
}

type failing struct{ Base }

func (failing) Transform(_ context.Context, m *Module, tc *Context) error {
	m.Code = []byte("garbage")
	return &SpanError{Span: tc.Span(0, 1), Err: errors.New("boom")}
}

type aliasHook struct {
	Base
	from, to string
}

func (a aliasHook) Resolve(_ context.Context, args ResolveArgs) (ResolveResult, error) {
	if args.Specifier == a.from {
		return ResolveResult{Path: a.to}, nil
	}
	return ResolveResult{}, nil
}

func newModule(t *testing.T, name, code string) *Module {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual(name, []byte(code))
	return NewModule("/p/"+name, id, fs.Get(id).Content, false)
}

func TestEmptyChainIsIdentity(t *testing.T) {
	chain, err := NewChain()
	require.NoError(t, err)
	m := newModule(t, "a.js", "import b from './b';\nconsole.log(b);\n")
	before := append([]byte(nil), m.Code...)

	require.NoError(t, chain.Apply(context.Background(), m, nil, nil))
	assert.Equal(t, before, m.Code)
	assert.Empty(t, m.Origin)
}

func TestPhaseOrderContract(t *testing.T) {
	_, err := NewChain(
		Stage{Plugin: prefixer{Base: NewBase("late", PhaseOptimize)}},
		Stage{Plugin: prefixer{Base: NewBase("early", PhaseLoad)}},
	)
	var se *SetupError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, diag.InvalidPluginOrder, se.Code)
	assert.Equal(t, "early", se.Plugin)

	_, err = NewChain(
		Stage{Plugin: prefixer{Base: NewBase("a", PhaseTransform)}},
		Stage{Plugin: prefixer{Base: NewBase("b", PhaseTransform)}},
		Stage{Plugin: prefixer{Base: NewBase("c", PhaseOptimize)}},
	)
	require.NoError(t, err, "equal phases keep configured order")
}

func TestInapplicableStagesAreSkipped(t *testing.T) {
	chain, err := NewChain(
		Stage{Plugin: prefixer{Base: NewBase("css-only", PhaseLoad, KindCSS), text: "X"}},
		Stage{Plugin: prefixer{Base: NewBase("js", PhaseTransform, KindJS), text: "Y"}},
	)
	require.NoError(t, err)
	m := newModule(t, "a.js", "a")
	require.NoError(t, chain.Apply(context.Background(), m, nil, nil))
	assert.Equal(t, "Ya", string(m.Code))
	assert.Equal(t, "js", m.Origin)
}

func TestTwoShiftingStagesMapToOriginal(t *testing.T) {
	chain, err := NewChain(
		Stage{Plugin: prefixer{Base: NewBase("banner", PhaseTransform), text: "/* banner */\n"}},
		Stage{Plugin: deleter{Base: NewBase("strip", PhaseOptimize), needle: "import b from './b';\n"}},
	)
	require.NoError(t, err)

	src := "import b from './b';\nconsole.log(b);\n"
	m := newModule(t, "a.js", src)
	require.NoError(t, chain.Apply(context.Background(), m, nil, nil))
	assert.Equal(t, "/* banner */\nconsole.log(b);\n", string(m.Code))

	off := strings.Index(string(m.Code), "console")
	in, ok := m.Map.Lookup(uint32(off))
	require.True(t, ok)
	assert.Equal(t, uint32(strings.Index(src, "console")), in)

	_, ok = m.Map.Lookup(0)
	assert.False(t, ok, "banner text has no origin")
}

func TestFailureKeepsModuleAndCarriesSpan(t *testing.T) {
	chain, err := NewChain(
		Stage{Plugin: prefixer{Base: NewBase("first", PhaseLoad), text: "ok;"}},
		Stage{Plugin: failing{Base: NewBase("broken", PhaseTransform)}},
	)
	require.NoError(t, err)
	m := newModule(t, "x.js", "x")
	err = chain.Apply(context.Background(), m, nil, nil)

	var te *TransformError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "broken", te.Stage)
	assert.Equal(t, "/p/x.js", te.Module)
	assert.Equal(t, "ok;x", string(m.Code), "failed stage must not leak its edits")
	d := te.Diagnostic()
	assert.Equal(t, diag.TransformFailed, d.Code)
	assert.Equal(t, diag.SevError, d.Severity)
}

func TestResolveHooksFirstWins(t *testing.T) {
	chain, err := NewChain(
		Stage{Plugin: aliasHook{Base: NewBase("one", PhaseResolve), from: "@a", to: "/p/one.ts"}},
		Stage{Plugin: aliasHook{Base: NewBase("two", PhaseResolve), from: "@a", to: "/p/two.ts"}},
	)
	require.NoError(t, err)

	res, stage, err := chain.Resolve(context.Background(), ResolveArgs{Specifier: "@a"})
	require.NoError(t, err)
	assert.Equal(t, "/p/one.ts", res.Path)
	assert.Equal(t, "one", stage)

	res, stage, err = chain.Resolve(context.Background(), ResolveArgs{Specifier: "./x"})
	require.NoError(t, err)
	assert.True(t, res.Declined())
	assert.Empty(t, stage)
}

func TestContextSpecifiersAndDiagnostics(t *testing.T) {
	m := newModule(t, "a.js", "import 'react';\nimport './b';\n")
	var got []diag.Diagnostic
	tc := NewContext("scan", m, diag.ReporterFunc(func(d diag.Diagnostic) { got = append(got, d) }),
		func(s string) bool { return s == "react" })

	tc.AddSpecifier("react", 8, 13)
	tc.AddSpecifier("./b", 24, 27)
	tc.Warn(diag.ThisIsUndefined, tc.Span(0, 6), "warn %d", 1)

	require.Len(t, m.Specifiers, 2)
	assert.True(t, m.Specifiers[0].External)
	assert.False(t, m.Specifiers[1].External)
	assert.Equal(t, source.Span{File: m.File, Start: 24, End: 27}, m.Specifiers[1].Span)
	assert.Equal(t, []Specifier{m.Specifiers[1]}, m.Internal())

	require.Len(t, got, 1)
	assert.Equal(t, "scan", got[0].Stage)
	assert.Equal(t, "/p/a.js", got[0].Module)
	assert.Equal(t, "warn 1", got[0].Message)
}

func TestRegistryInstantiate(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("banner", func(opts Options, _ Env) (Plugin, error) {
		text, err := opts.String("text", "")
		if err != nil {
			return nil, err
		}
		return prefixer{Base: NewBase("banner", PhaseOptimize), text: text}, nil
	})
	require.Error(t, reg.Register("banner", nil))

	chain, err := reg.Instantiate([]Spec{{Name: "banner", Options: Options{"text": "/*x*/"}}}, Env{})
	require.NoError(t, err)
	assert.Equal(t, []string{"banner"}, chain.Names())

	_, err = reg.Instantiate([]Spec{{Name: "nope"}}, Env{})
	var se *SetupError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, diag.UnknownPlugin, se.Code)

	_, err = reg.Instantiate([]Spec{{Name: "banner", Options: Options{"text": 3}}}, Env{})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, diag.ConfigInvalid, se.Code)
}

func TestFingerprintTracksOptions(t *testing.T) {
	mk := func(text string) *Chain {
		c, err := NewChain(Stage{Plugin: prefixer{Base: NewBase("banner", PhaseOptimize)}, Options: Options{"text": text}})
		require.NoError(t, err)
		return c
	}
	assert.Equal(t, mk("a").Fingerprint(), mk("a").Fingerprint())
	assert.NotEqual(t, mk("a").Fingerprint(), mk("b").Fingerprint())
}

func TestFingerprintTracksEnv(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("banner", func(Options, Env) (Plugin, error) {
		return prefixer{Base: NewBase("banner", PhaseOptimize)}, nil
	})
	mk := func(env Env) project.Digest {
		c, err := reg.Instantiate([]Spec{{Name: "banner"}}, env)
		require.NoError(t, err)
		return c.Fingerprint()
	}
	esm := mk(Env{Format: "esm"})
	assert.Equal(t, esm, mk(Env{Format: "esm"}))
	assert.NotEqual(t, esm, mk(Env{Format: "iife"}))
	assert.NotEqual(t, esm, mk(Env{Format: "esm", Externals: []string{"react"}}))
}

func TestOptionsHelpers(t *testing.T) {
	o := Options{
		"s":    "x",
		"b":    true,
		"n":    int64(3),
		"f":    2.0,
		"list": []any{"a", "b"},
		"map":  map[string]any{"k": "v"},
	}
	s, err := o.String("s", "")
	require.NoError(t, err)
	assert.Equal(t, "x", s)
	b, err := o.Bool("missing", true)
	require.NoError(t, err)
	assert.True(t, b)
	n, err := o.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	f, err := o.Int("f", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, f)
	list, err := o.StringSlice("list")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, list)
	mp, err := o.StringMap("map")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "v"}, mp)
	_, err = o.Bool("s", false)
	assert.Error(t, err)
	assert.Error(t, o.Only("s", "b"))
	assert.NoError(t, o.Only("s", "b", "n", "f", "list", "map"))
}
