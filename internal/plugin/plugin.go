// Package plugin defines the contract between the build engine and the
// stages of a transform chain.
//
// A plugin declares a name, a phase and an applicability predicate. It may
// implement Resolver to take part in specifier resolution, Transformer to
// rewrite module code, or both. Plugins are created per build by a Factory
// from their configured options, and must be safe for concurrent use across
// distinct modules.
package plugin

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Phase orders stages. A configured chain must be non-decreasing in phase.
type Phase uint8

const (
	// PhaseResolve stages change how specifiers map to files.
	PhaseResolve Phase = iota
	// PhaseLoad stages turn non-JS sources (css, svg) into JS.
	PhaseLoad
	// PhaseTransform stages rewrite JS and may change import syntax.
	PhaseTransform
	// PhaseOptimize stages only shrink output; module boundaries are fixed.
	PhaseOptimize
)

func (p Phase) String() string {
	switch p {
	case PhaseResolve:
		return "resolve"
	case PhaseLoad:
		return "load"
	case PhaseTransform:
		return "transform"
	case PhaseOptimize:
		return "optimize"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Kind is the type of a module's current representation.
type Kind string

const (
	KindJS   Kind = "js"
	KindTS   Kind = "ts"
	KindCSS  Kind = "css"
	KindSVG  Kind = "svg"
	KindJSON Kind = "json"
	KindText Kind = "text"
)

// IsScript reports whether the representation is JavaScript or TypeScript.
func (k Kind) IsScript() bool { return k == KindJS || k == KindTS }

// KindFromPath guesses the initial representation from a file extension.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return KindTS
	case ".js", ".jsx", ".mjs", ".cjs":
		return KindJS
	case ".css", ".scss", ".sass", ".less":
		return KindCSS
	case ".svg":
		return KindSVG
	case ".json":
		return KindJSON
	}
	return KindText
}

// Plugin is the common part of every stage.
type Plugin interface {
	Name() string
	Phase() Phase
	AppliesTo(m *Module) bool
}

// ResolveArgs is what a resolve hook sees.
type ResolveArgs struct {
	Specifier string
	// Importer is the identity of the importing module, empty for entries.
	Importer string
	// Probe runs the core extension probing on a path the hook computed.
	Probe func(base string) (string, bool)
}

// ResolveResult is a hook's answer. The zero value declines.
type ResolveResult struct {
	Path     string
	External bool
}

// Declined reports whether the hook had no opinion.
func (r ResolveResult) Declined() bool { return r.Path == "" && !r.External }

// Resolver participates in resolution before the core resolver.
type Resolver interface {
	Plugin
	Resolve(ctx context.Context, args ResolveArgs) (ResolveResult, error)
}

// Transformer rewrites a module. It must leave m untouched on error.
type Transformer interface {
	Plugin
	Transform(ctx context.Context, m *Module, tc *Context) error
}

// Base implements Name, Phase and a kind-based AppliesTo for embedding.
type Base struct {
	name  string
	phase Phase
	kinds []Kind
	exts  []string
}

// NewBase returns a Base applying to modules whose current kind is one of
// kinds; no kinds means every module.
func NewBase(name string, phase Phase, kinds ...Kind) Base {
	return Base{name: name, phase: phase, kinds: kinds}
}

// WithExtensions restricts the base to modules whose identity ends in one of exts.
func (b Base) WithExtensions(exts ...string) Base {
	b.exts = exts
	return b
}

func (b Base) Name() string { return b.name }
func (b Base) Phase() Phase { return b.phase }

func (b Base) AppliesTo(m *Module) bool {
	if len(b.kinds) > 0 && !slices.Contains(b.kinds, m.Kind) {
		return false
	}
	if len(b.exts) > 0 && !slices.Contains(b.exts, strings.ToLower(filepath.Ext(m.ID))) {
		return false
	}
	return true
}
