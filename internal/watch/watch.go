// Package watch rebuilds a project when its files change. Events are
// filtered through the project's .gitignore, debounced into batches, and
// a new batch cancels the build still running for the previous one.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	gitignore "github.com/sabhiram/go-gitignore"

	"weld/internal/ctxlog"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before rebuilding.
const DefaultDebounce = 150 * time.Millisecond

// BuildFunc runs one build. ctx is cancelled when a newer change batch
// supersedes it. changed is nil for the initial build.
type BuildFunc func(ctx context.Context, changed []string)

type Options struct {
	Root string
	// Skip lists directories never watched, typically the output and
	// cache directories. Relative entries are anchored at Root.
	Skip     []string
	Debounce time.Duration
}

type Watcher struct {
	root     string
	skip     []string
	ignore   *gitignore.GitIgnore
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// New starts watching every non-ignored directory under opts.Root.
func New(opts Options) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{root: root, debounce: opts.Debounce}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	w.skip = append(w.skip, filepath.Join(root, ".git"))
	for _, s := range opts.Skip {
		if !filepath.IsAbs(s) {
			s = filepath.Join(root, s)
		}
		w.skip = append(w.skip, filepath.Clean(s))
	}
	ig, err := gitignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	switch {
	case err == nil:
		w.ignore = ig
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("watch: .gitignore: %w", err)
	}

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := w.addTree(root); err != nil {
		_ = w.fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) Close() error { return w.fsw.Close() }

// Ignored reports whether changes to path never trigger a rebuild.
func (w *Watcher) Ignored(path string) bool {
	return w.ignored(path, false)
}

func (w *Watcher) ignored(path string, dir bool) bool {
	path = filepath.Clean(path)
	for _, s := range w.skip {
		if path == s || strings.HasPrefix(path, s+string(filepath.Separator)) {
			return true
		}
	}
	if w.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if dir && w.ignore.MatchesPath(rel+"/") {
		return true
	}
	return w.ignore.MatchesPath(rel)
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// directories vanishing mid-walk are normal during a rebuild
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

// Run calls build once immediately and again after every debounced batch
// of changes until ctx is done. It returns after the last build has
// observed its cancellation.
func (w *Watcher) Run(ctx context.Context, build BuildFunc) error {
	logger := ctxlog.FromContext(ctx)

	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)
	stop := func() {
		if cancel != nil {
			cancel()
		}
		wg.Wait()
	}
	start := func(changed []string) {
		stop()
		var bctx context.Context
		bctx, cancel = context.WithCancel(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			build(bctx, changed)
		}()
	}
	defer stop()

	start(nil)

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						logger.Warn("watch: cannot follow new directory", "path", ev.Name, "err", err)
					}
				}
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: watcher error", "err", err)

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)
			logger.Debug("watch: rebuilding", "changed", len(changed))
			start(changed)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	// attribute-only changes do not alter content
	if ev.Op == fsnotify.Chmod {
		return false
	}
	return !w.Ignored(ev.Name)
}
