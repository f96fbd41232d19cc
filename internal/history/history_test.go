package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPreviousReturnsLatestOtherBuild(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, Build{ID: "b1", At: t0, Status: "ok", Modules: 3,
		Outputs: []Output{{Path: "app.js", Raw: 100, Final: 80, Gzip: 40, Brotli: 35}}}))
	require.NoError(t, s.Record(ctx, Build{ID: "b2", At: t0.Add(time.Minute), Status: "ok", Modules: 3,
		Outputs: []Output{{Path: "app.js", Raw: 120, Final: 90, Gzip: 45, Brotli: 38}, {Path: "admin.js", Raw: 10, Final: 9}}}))

	prev, ok, err := s.Previous(ctx, "app.js", "b3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 90, prev.Final)

	prev, ok, err = s.Previous(ctx, "app.js", "b2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 80, prev.Final)

	_, ok, err = s.Previous(ctx, "admin.js", "b2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecentAndPrune(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, Build{ID: id, At: t0.Add(time.Duration(i) * time.Second), Status: "ok",
			Outputs: []Output{{Path: "x.js", Final: i}}}))
	}

	builds, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, "c", builds[0].ID)
	assert.Equal(t, "b", builds[1].ID)
	assert.True(t, builds[0].At.Equal(t0.Add(2*time.Second)))
	assert.Equal(t, []Output{{Path: "x.js", Final: 2}}, builds[0].Outputs)

	n, err := s.Prune(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	builds, err = s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, "c", builds[0].ID)

	// outputs of pruned builds go with them
	_, ok, err := s.Previous(ctx, "x.js", "c")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	dup := []Output{{Path: "x.js"}, {Path: "x.js"}}
	require.Error(t, s.Record(ctx, Build{ID: "bad", At: time.Now(), Status: "ok", Outputs: dup}))

	builds, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, builds)
}
