package posmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewriterNoEditsIsIdentity(t *testing.T) {
	src := []byte("const a = 1;\n")
	out, m, err := NewRewriter(src).Apply()
	require.NoError(t, err)
	assert.Equal(t, src, out)
	for off := range uint32(len(src)) {
		in, ok := m.Lookup(off)
		require.True(t, ok)
		assert.Equal(t, off, in)
	}
}

func TestRewriterInsertDeleteReplace(t *testing.T) {
	src := []byte("import x;\nfoo(bar);\n")
	r := NewRewriter(src)
	r.Insert(0, "/*b*/")
	r.Delete(0, 10)             // drop "import x;\n"
	r.Replace(14, 17, "BAZZZ") // bar -> BAZZZ
	out, m, err := r.Apply()
	require.NoError(t, err)
	assert.Equal(t, "/*b*/foo(BAZZZ);\n", string(out))
	require.NoError(t, m.Validate())

	// "foo" starts at output 5, input 10
	in, ok := m.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, uint32(10), in)

	// inserted banner and replacement text are unmapped
	_, ok = m.Lookup(0)
	assert.False(t, ok)
	_, ok = m.Lookup(10)
	assert.False(t, ok)

	// ");" after the replacement maps back past "bar"
	in, ok = m.Lookup(14)
	require.True(t, ok)
	assert.Equal(t, uint32(17), in)
}

func TestRewriterRejectsOverlap(t *testing.T) {
	r := NewRewriter([]byte("abcdef"))
	r.Delete(1, 4)
	r.Replace(2, 5, "x")
	_, _, err := r.Apply()
	require.Error(t, err)
}

func TestComposeThroughTwoShiftingStages(t *testing.T) {
	original := []byte("a\nbb\nccc\n")

	// stage 1: two-line header
	r1 := NewRewriter(original)
	r1.Insert(0, "// one\n// two\n")
	s1, m1, err := r1.Apply()
	require.NoError(t, err)

	// stage 2: prepend more text and delete "bb\n"
	stage1Offset := len("// one\n// two\n")
	r2 := NewRewriter(s1)
	r2.Insert(0, "HEAD;")
	r2.Delete(stage1Offset+2, stage1Offset+5)
	s2, m2, err := r2.Apply()
	require.NoError(t, err)
	assert.Equal(t, "HEAD;// one\n// two\na\nccc\n", string(s2))

	total := Compose(m2, Compose(m1, Identity(len(original))))
	require.NoError(t, total.Validate())

	// the first 'c' in the final output must map to offset 5 of the original
	finalC := uint32(len("HEAD;// one\n// two\na\n"))
	in, ok := total.Lookup(finalC)
	require.True(t, ok)
	assert.Equal(t, uint32(5), in)

	// 'a' maps to 0
	in, ok = total.Lookup(uint32(len("HEAD;// one\n// two\n")))
	require.True(t, ok)
	assert.Equal(t, uint32(0), in)

	// header text is unmapped
	_, ok = total.Lookup(2)
	assert.False(t, ok)
}

func TestComposeMergesContiguousSegments(t *testing.T) {
	inner := &Map{Segments: []Segment{{Out: 0, In: 10, Len: 4}, {Out: 4, In: 14, Len: 4}}}
	outer := Identity(8)
	got := Compose(outer, inner)
	assert.Equal(t, []Segment{{Out: 0, In: 10, Len: 8}}, got.Segments)
}
