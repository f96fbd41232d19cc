package emit

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/config"
	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/posmap"
	"weld/internal/project/dag"
	"weld/internal/source"
)

type fixture struct {
	t  *testing.T
	g  *dag.Graph
	fs *source.FileSet
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, g: dag.New(0), fs: source.NewFileSet()}
}

// add registers a module; transforms run on it before it is committed.
func (f *fixture) add(id, raw string, entry bool, deps []string, transforms ...func(*plugin.Module, *plugin.Context)) *dag.Record {
	f.t.Helper()
	if entry {
		f.g.AddEntry(id)
	}
	rec, claimed, err := f.g.Claim(id)
	require.NoError(f.t, err)
	require.True(f.t, claimed)
	fid := f.fs.AddVirtual(id, []byte(raw))
	m := plugin.NewModule(id, fid, f.fs.Get(fid).Content, entry)
	for i, tr := range transforms {
		tr(m, plugin.NewContext("stage"+string(rune('1'+i)), m, nil, nil))
	}
	rec.Commit(m)
	rec.Deps = deps
	return rec
}

func (f *fixture) emit(opts Options) ([]Artifact, Stats) {
	f.t.Helper()
	f.g.Freeze()
	opts.FileSet = f.fs
	if opts.Root == "" {
		opts.Root = "/proj"
	}
	if opts.OutDir == "" && opts.File == "" {
		opts.OutDir = "/proj/dist"
	}
	arts, stats, err := Emit(f.g, opts)
	require.NoError(f.t, err)
	return arts, stats
}

func TestEmitDependencyFirstBundle(t *testing.T) {
	f := newFixture(t)
	f.add("/proj/src/a.js", "console.log(b);\n", true, []string{"/proj/src/b.js"})
	f.add("/proj/src/b.js", "const b = c + 1;\n", false, []string{"/proj/src/c.js"})
	f.add("/proj/src/c.js", "const c = 2;\n", false, nil)

	arts, stats := f.emit(Options{SourceMap: true})
	require.Len(t, arts, 1)
	art := arts[0]
	assert.Equal(t, "/proj/dist/a.js", art.Path)
	assert.Equal(t, "/proj/dist/a.js.map", art.MapPath())
	assert.Equal(t, "// src/c.js\nconst c = 2;\n"+
		"// src/b.js\nconst b = c + 1;\n"+
		"// src/a.js\nconsole.log(b);\n"+
		"//# sourceMappingURL=a.js.map\n", string(art.Code))
	assert.Equal(t, []string{"/proj/src/c.js", "/proj/src/b.js", "/proj/src/a.js"}, art.Modules)

	smap := decodeMap(t, art.Map)
	file, line, col, ok := smap.Source(4, 0)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(file, "src/b.js"), file)
	assert.Equal(t, 1, line)
	assert.Equal(t, 0, col)

	require.Len(t, stats.Outputs, 1)
	out := stats.Outputs[0]
	assert.Equal(t, "a.js", out.Path)
	assert.Equal(t, len("console.log(b);\nconst b = c + 1;\nconst c = 2;\n"), out.Raw)
	assert.Equal(t, len(art.Code), out.Final)
	assert.Positive(t, out.Gzip)
	assert.Positive(t, out.Brotli)
	require.Len(t, out.Modules, 3)
	assert.Equal(t, "src/c.js", out.Modules[0].Path)
	assert.Equal(t, len("// src/c.js\nconst c = 2;\n"), out.Modules[0].Final)
	total := stats.Total()
	assert.Equal(t, [4]int{out.Raw, out.Final, out.Gzip, out.Brotli}, [4]int{total.Raw, total.Final, total.Gzip, total.Brotli})
}

func TestEmitMapComposesThroughStages(t *testing.T) {
	f := newFixture(t)
	raw := "let x = 1;\nlet y = 2;\n"
	f.add("/proj/m.js", raw, true, nil,
		func(m *plugin.Module, tc *plugin.Context) {
			rw := posmap.NewRewriter(m.Code)
			rw.Insert(0, "/* hi */\n")
			require.NoError(t, tc.Rewrite(rw, ""))
		},
		func(m *plugin.Module, tc *plugin.Context) {
			at := strings.Index(string(m.Code), "let y")
			rw := posmap.NewRewriter(m.Code)
			rw.Replace(at, at+3, "var")
			require.NoError(t, tc.Rewrite(rw, ""))
		},
	)
	arts, _ := f.emit(Options{SourceMap: true})
	code := string(arts[0].Code)
	require.Equal(t, "// m.js\n/* hi */\nlet x = 1;\nvar y = 2;\n//# sourceMappingURL=m.js.map\n", code)

	smap := decodeMap(t, arts[0].Map)

	// "let x" on output line 3 is original line 1
	_, line, col, ok := smap.Source(3, 0)
	require.True(t, ok)
	assert.Equal(t, [2]int{1, 0}, [2]int{line, col})

	// " y" after the synthesized "var" on output line 4 is original line 2, column 3
	_, line, col, ok = smap.Source(4, 3)
	require.True(t, ok)
	assert.Equal(t, [2]int{2, 3}, [2]int{line, col})
}

func TestEmitRejectsOverflowingSourceOffsets(t *testing.T) {
	f := newFixture(t)
	rec := f.add("/proj/m.js", "a\nbc\n", true, nil)
	rec.Map = &posmap.Map{Segments: []posmap.Segment{{Out: 0, In: math.MaxUint32 - 1, Len: 5}}}
	f.g.Freeze()

	_, _, err := Emit(f.g, Options{Root: "/proj", OutDir: "/proj/dist", SourceMap: true, FileSet: f.fs})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "m.js")
}

func TestEmitColumnsAreUTF16(t *testing.T) {
	f := newFixture(t)
	raw := "const s = \"😀\"; go();\n"
	f.add("/proj/u.js", raw, true, nil, func(m *plugin.Module, tc *plugin.Context) {
		at := strings.Index(string(m.Code), " go")
		rw := posmap.NewRewriter(m.Code)
		rw.Delete(at, at+1)
		require.NoError(t, tc.Rewrite(rw, ""))
	})
	arts, _ := f.emit(Options{SourceMap: true})
	smap := decodeMap(t, arts[0].Map)
	// the emoji is two UTF-16 units; the deleted space shifts "go" one column left
	_, line, col, ok := smap.Source(2, 15)
	require.True(t, ok)
	assert.Equal(t, 1, line)
	assert.Equal(t, 16, col)
}

func TestEmitIIFEWithName(t *testing.T) {
	f := newFixture(t)
	f.add("/proj/lib.js", "var __default_lib = 42;\n", true, nil)
	arts, _ := f.emit(Options{Format: config.FormatIIFE, Name: "Lib"})
	assert.Equal(t, "var Lib = (function () {\n'use strict';\n\n"+
		"// lib.js\nvar __default_lib = 42;\n"+
		"\nreturn __default_lib;\n})();\n", string(arts[0].Code))
	assert.Nil(t, arts[0].Map)
}

func TestEmitIIFEWithoutDefault(t *testing.T) {
	f := newFixture(t)
	f.add("/proj/app.js", "run();\n", true, nil)
	arts, _ := f.emit(Options{Format: config.FormatIIFE, Name: "App"})
	assert.Equal(t, "(function () {\n'use strict';\n\n// app.js\nrun();\n\n})();\n", string(arts[0].Code))
}

func TestEmitSingleFileSharesModules(t *testing.T) {
	f := newFixture(t)
	f.add("/proj/a.js", "a();\n", true, []string{"/proj/shared.js"})
	f.add("/proj/shared.js", "shared();\n", false, nil)
	f.add("/proj/b.js", "b();\n", true, []string{"/proj/shared.js"})

	arts, _ := f.emit(Options{File: "/proj/out/bundle.js"})
	require.Len(t, arts, 1)
	assert.Equal(t, []string{"/proj/shared.js", "/proj/a.js", "/proj/b.js"}, arts[0].Modules)
	assert.Equal(t, []string{"/proj/a.js", "/proj/b.js"}, arts[0].Entries)
}

func TestBundlePlansNaming(t *testing.T) {
	plans, err := bundlePlans([]string{"/p/a/index.ts", "/p/b/index.ts", "/p/a.ts"}, Options{OutDir: "/p/dist"})
	require.NoError(t, err)
	var names []string
	for _, p := range plans {
		names = append(names, p.path)
	}
	assert.Equal(t, []string{"/p/dist/a.js", "/p/dist/b.js", "/p/dist/a-2.js"}, names)

	_, err = bundlePlans(nil, Options{})
	assert.Error(t, err)
}

func TestEmitSkipsFailedAndNonJS(t *testing.T) {
	f := newFixture(t)
	f.add("/proj/main.js", "main();\n", true, []string{"/proj/x.js", "/proj/theme.css", "/proj/ok.js"})
	x := f.add("/proj/x.js", "x();\n", false, []string{"/proj/only-x.js"})
	x.Failed = true
	f.add("/proj/only-x.js", "onlyX();\n", false, nil)
	f.add("/proj/theme.css", "body{}\n", false, nil)
	f.add("/proj/ok.js", "ok();\n", false, nil)

	var got []diag.Diagnostic
	reporter := diag.ReporterFunc(func(d diag.Diagnostic) { got = append(got, d) })
	arts, _ := f.emit(Options{Reporter: reporter})
	assert.Equal(t, []string{"/proj/ok.js", "/proj/main.js"}, arts[0].Modules)
	require.Len(t, got, 1)
	assert.Equal(t, diag.NonJSModule, got[0].Code)
	assert.Equal(t, diag.SevWarning, got[0].Severity)
	assert.Equal(t, "/proj/theme.css", got[0].Module)
}

func TestWriteVLQ(t *testing.T) {
	for n, want := range map[int]string{0: "A", 1: "C", -1: "D", 15: "e", 16: "gB", -17: "jB", 1000: "w+B"} {
		var sb strings.Builder
		writeVLQ(&sb, n)
		assert.Equal(t, want, sb.String(), "n=%d", n)
	}
}
