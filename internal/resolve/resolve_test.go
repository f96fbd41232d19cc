package resolve

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStat serves Stat from an in-memory tree rooted at "/".
func memStat(files ...string) StatFunc {
	m := fstest.MapFS{}
	for _, f := range files {
		m[f[1:]] = &fstest.MapFile{Data: []byte("x")}
	}
	return func(path string) (fs.FileInfo, error) {
		rel := filepath.ToSlash(path)
		if len(rel) > 0 && rel[0] == '/' {
			rel = rel[1:]
		}
		return fs.Stat(m, rel)
	}
}

func TestExtensionProbingOrder(t *testing.T) {
	r := New(Options{
		Root:         "/p",
		Extensions:   []string{".ts", ".js"},
		Stat:         memStat("/p/a.ts", "/p/b.ts", "/p/b.js", "/p/c.js"),
		KeepSymlinks: true,
	})

	got, err := r.Resolve("./b", "/p/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "/p/b.ts", got, ".ts wins over .js")

	got, err = r.Resolve("./c", "/p/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "/p/c.js", got)

	got, err = r.Resolve("./b.ts", "/p/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "/p/b.ts", got, "verbatim first")
}

func TestIndexFallbackAndProbedList(t *testing.T) {
	r := New(Options{
		Root:         "/p",
		Extensions:   []string{".ts", ".js"},
		Stat:         memStat("/p/lib/index.js"),
		KeepSymlinks: true,
	})

	got, err := r.Resolve("./lib", "/p/src/../a.ts")
	require.NoError(t, err)
	assert.Equal(t, "/p/lib/index.js", got)

	_, err = r.Resolve("./missing", "/p/a.ts")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "./missing", nf.Specifier)
	assert.Equal(t, "/p/a.ts", nf.Importer)
	assert.Equal(t, []string{
		"/p/missing",
		"/p/missing.ts",
		"/p/missing.js",
		"/p/missing/index.ts",
		"/p/missing/index.js",
	}, nf.Probed)
	assert.True(t, IsNotFound(err))
}

func TestBareSpecifiersUseRootsInOrder(t *testing.T) {
	r := New(Options{
		Root:         "/p",
		Extensions:   []string{".ts"},
		Roots:        []string{"/p/vendor", "/p/node_modules"},
		Stat:         memStat("/p/vendor/lib/x.ts", "/p/node_modules/lib/x.ts", "/p/node_modules/only/y.ts"),
		KeepSymlinks: true,
	})

	got, err := r.Resolve("lib/x", "/p/src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "/p/vendor/lib/x.ts", got)

	got, err = r.Resolve("only/y", "/p/src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "/p/node_modules/only/y.ts", got)
}

func TestEntryAnchoredAtRoot(t *testing.T) {
	r := New(Options{
		Root:         "/p",
		Extensions:   []string{".ts"},
		Stat:         memStat("/p/src/main.ts"),
		KeepSymlinks: true,
	})
	for _, spec := range []string{"src/main", "./src/main", "/p/src/main.ts"} {
		got, err := r.Resolve(spec, "")
		require.NoError(t, err, spec)
		assert.Equal(t, "/p/src/main.ts", got, spec)
	}
}

func TestDirectoriesAreNotModules(t *testing.T) {
	r := New(Options{
		Root:         "/p",
		Extensions:   []string{".ts"},
		Stat:         memStat("/p/pkg/index.ts"),
		KeepSymlinks: true,
	})
	got, err := r.Resolve("./pkg", "/p/a.ts")
	require.NoError(t, err)
	assert.Equal(t, "/p/pkg/index.ts", got)
}

func TestSymlinksCollapseToOneIdentity(t *testing.T) {
	dir := t.TempDir()
	realPath := filepath.Join(dir, "real.ts")
	require.NoError(t, os.WriteFile(realPath, []byte("export {}"), 0o600))
	link := filepath.Join(dir, "link.ts")
	if err := os.Symlink(realPath, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	wantReal, err := filepath.EvalSymlinks(realPath)
	require.NoError(t, err)

	r := New(Options{Root: dir, Extensions: []string{".ts"}})
	a, err := r.Resolve("./real", filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	b, err := r.Resolve("./link", filepath.Join(dir, "main.ts"))
	require.NoError(t, err)
	assert.Equal(t, wantReal, a)
	assert.Equal(t, a, b)
}

func TestExternals(t *testing.T) {
	ext := Externals{"react", "@scope/"}
	assert.True(t, ext.Match("react"))
	assert.True(t, ext.Match("react/jsx-runtime"))
	assert.False(t, ext.Match("react-dom"))
	assert.True(t, ext.Match("@scope/pkg"))
	assert.False(t, ext.Match("./react"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindRelative, Classify("./a"))
	assert.Equal(t, KindRelative, Classify("../a"))
	assert.Equal(t, KindAbsolute, Classify("/a"))
	assert.Equal(t, KindBare, Classify("lodash/get"))
}
