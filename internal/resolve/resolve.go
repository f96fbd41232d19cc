// Package resolve maps import specifiers to module identities on disk.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// StatFunc reports what exists at a path. It is os.Stat by default and is
// swapped for an in-memory probe in tests.
type StatFunc func(path string) (fs.FileInfo, error)

// Options configures a Resolver.
type Options struct {
	// Root anchors entry specifiers that have no importer.
	Root string
	// Extensions are appended, in order, when probing.
	Extensions []string
	// Roots are absolute lookup directories for bare specifiers, in priority order.
	Roots []string
	// Stat defaults to os.Stat.
	Stat StatFunc
	// KeepSymlinks skips filepath.EvalSymlinks on the result.
	KeepSymlinks bool
}

// Resolver is safe for concurrent use; it holds no mutable state.
type Resolver struct {
	opts Options
}

func New(opts Options) *Resolver {
	if opts.Stat == nil {
		opts.Stat = os.Stat
	}
	return &Resolver{opts: opts}
}

// Extensions returns the configured probe list.
func (r *Resolver) Extensions() []string { return r.opts.Extensions }

// NotFoundError records every path probed for a specifier.
type NotFoundError struct {
	Specifier string
	Importer  string
	Probed    []string
}

func (e *NotFoundError) Error() string {
	from := e.Importer
	if from == "" {
		from = "entry"
	}
	return fmt.Sprintf("cannot resolve %q from %s (%d candidates probed)", e.Specifier, from, len(e.Probed))
}

// IsNotFound reports whether err is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Kind classifies specifiers.
type Kind uint8

const (
	KindRelative Kind = iota
	KindAbsolute
	KindBare
)

// Classify returns how spec is resolved.
func Classify(spec string) Kind {
	switch {
	case spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../"):
		return KindRelative
	case filepath.IsAbs(filepath.FromSlash(spec)) || strings.HasPrefix(spec, "/"):
		return KindAbsolute
	}
	return KindBare
}

// Resolve finds the file spec refers to when imported from the module
// identity from. An empty from means spec is an entry anchored at Root.
func (r *Resolver) Resolve(spec, from string) (string, error) {
	spec = norm.NFC.String(strings.TrimSpace(spec))
	if spec == "" {
		return "", &NotFoundError{Specifier: spec, Importer: from}
	}

	var bases []string
	switch Classify(spec) {
	case KindRelative:
		dir := r.opts.Root
		if from != "" {
			dir = filepath.Dir(from)
		}
		bases = []string{filepath.Join(dir, filepath.FromSlash(spec))}
	case KindAbsolute:
		bases = []string{filepath.Clean(filepath.FromSlash(spec))}
	case KindBare:
		if from == "" && r.opts.Root != "" {
			// entries are written relative to the project root
			bases = append(bases, filepath.Join(r.opts.Root, filepath.FromSlash(spec)))
		}
		for _, root := range r.opts.Roots {
			bases = append(bases, filepath.Join(root, filepath.FromSlash(spec)))
		}
	}

	var probed []string
	for _, base := range bases {
		path, tried, ok := r.Probe(base)
		probed = append(probed, tried...)
		if ok {
			return r.canonical(path), nil
		}
	}
	return "", &NotFoundError{Specifier: spec, Importer: from, Probed: probed}
}

// Probe tries base verbatim, then base+ext for every extension, then
// base/index+ext. It returns the hit and the list of paths tried.
func (r *Resolver) Probe(base string) (string, []string, bool) {
	candidates := make([]string, 0, 1+2*len(r.opts.Extensions))
	candidates = append(candidates, base)
	for _, ext := range r.opts.Extensions {
		candidates = append(candidates, base+ext)
	}
	for _, ext := range r.opts.Extensions {
		candidates = append(candidates, filepath.Join(base, "index"+ext))
	}

	tried := make([]string, 0, len(candidates))
	for _, c := range candidates {
		tried = append(tried, c)
		info, err := r.opts.Stat(c)
		if err == nil && info.Mode().IsRegular() {
			return c, tried, true
		}
	}
	return "", tried, false
}

func (r *Resolver) canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if r.opts.KeepSymlinks {
		return abs
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
