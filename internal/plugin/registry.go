package plugin

import (
	"fmt"
	"sort"
	"sync"

	"weld/internal/diag"
	"weld/internal/resolve"
)

// Env is what factories may know about the project.
type Env struct {
	Root       string
	Extensions []string
	Externals  resolve.Externals
	// Format is the output format ("esm" or "iife").
	Format string
}

// Factory builds a plugin instance from its options.
type Factory func(opts Options, env Env) (Plugin, error)

// Registry maps plugin names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory; names are unique.
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		return fmt.Errorf("plugin %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// MustRegister is Register for package initialization.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names lists registered plugins in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Spec is one configured stage.
type Spec struct {
	Name    string
	Options Options
}

// Instantiate creates every stage in order and validates the phase contract.
func (r *Registry) Instantiate(specs []Spec, env Env) (*Chain, error) {
	stages := make([]Stage, 0, len(specs))
	for i, s := range specs {
		f, ok := r.Lookup(s.Name)
		if !ok {
			return nil, &SetupError{Code: diag.UnknownPlugin, Index: i, Plugin: s.Name,
				Err: fmt.Errorf("not registered (known: %v)", r.Names())}
		}
		p, err := f(s.Options, env)
		if err != nil {
			return nil, &SetupError{Code: diag.ConfigInvalid, Index: i, Plugin: s.Name, Err: err}
		}
		stages = append(stages, Stage{Plugin: p, Options: s.Options})
	}
	chain, err := NewChain(stages...)
	if err != nil {
		return nil, err
	}
	chain.bindEnv(env)
	return chain, nil
}
