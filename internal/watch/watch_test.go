package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/testkit"
)

func newWatcher(t *testing.T, files map[string]string) (*Watcher, string) {
	t.Helper()
	root := testkit.WriteTree(t, files)
	w, err := New(Options{Root: root, Skip: []string{"dist", ".weld"}, Debounce: 20 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, root
}

func TestIgnored(t *testing.T) {
	w, root := newWatcher(t, map[string]string{
		".gitignore":     "node_modules/\n*.log\n",
		"src/a.js":       "",
		"dist/bundle.js": "",
	})
	tests := []struct {
		path string
		want bool
	}{
		{"src/a.js", false},
		{"dist/bundle.js", true},
		{".weld/cache/x", true},
		{".git/HEAD", true},
		{"debug.log", true},
		{"node_modules/lib/index.js", true},
		{"distance.js", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, w.Ignored(filepath.Join(root, tt.path)), tt.path)
	}
	assert.True(t, w.ignored(filepath.Join(root, "node_modules"), true))
}

func TestRunRebuildsOnChange(t *testing.T) {
	w, root := newWatcher(t, map[string]string{"src/a.js": "1"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := make(chan []string, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) { builds <- changed })
	}()

	select {
	case changed := <-builds:
		assert.Nil(t, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial build")
	}

	target := filepath.Join(root, "src", "a.js")
	require.NoError(t, os.WriteFile(target, []byte("2"), 0o600))
	select {
	case changed := <-builds:
		assert.Contains(t, changed, target)
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunCancelsSupersededBuild(t *testing.T) {
	w, root := newWatcher(t, map[string]string{"a.js": "1"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 8)
	cancelled := make(chan struct{}, 8)
	go func() {
		_ = w.Run(ctx, func(bctx context.Context, _ []string) {
			started <- struct{}{}
			<-bctx.Done()
			cancelled <- struct{}{}
		})
	}()

	<-started
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.js"), []byte("2"), 0o600))
	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("first build was not cancelled")
	}
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after cancellation")
	}
}

func TestRunFollowsCreatedDirectories(t *testing.T) {
	w, root := newWatcher(t, map[string]string{"a.js": ""})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	builds := make(chan []string, 8)
	go func() { _ = w.Run(ctx, func(_ context.Context, c []string) { builds <- c }) }()
	<-builds

	dir := filepath.Join(root, "lib")
	require.NoError(t, os.Mkdir(dir, 0o750))
	select {
	case <-builds:
	case <-time.After(5 * time.Second):
		t.Fatal("directory creation did not trigger a build")
	}

	file := filepath.Join(dir, "b.js")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	deadline := time.After(5 * time.Second)
	for {
		select {
		case changed := <-builds:
			if slices.Contains(changed, file) {
				return
			}
		case <-deadline:
			t.Fatal("change inside a new directory was not seen")
		}
	}
}
