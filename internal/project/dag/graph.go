package dag

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"fortio.org/safecast"

	"weld/internal/plugin"
	"weld/internal/posmap"
	"weld/internal/source"
)

// ErrFrozen is returned by Claim once the graph has been handed to the emitter.
var ErrFrozen = errors.New("dependency graph is frozen")

// OverflowError reports that claiming another module would exceed the node limit.
type OverflowError struct {
	Limit int
	ID    string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("module limit %d exceeded while adding %s", e.Limit, e.ID)
}

// Record is one module in the graph. Until the graph is frozen it is written
// only by the goroutine that claimed it.
type Record struct {
	ID    string
	Index ModuleID
	Entry bool

	File source.FileID
	Raw  []byte
	Code []byte
	Kind plugin.Kind
	// Map maps offsets in Code back to offsets in Raw.
	Map *posmap.Map
	// Origin names the stage that produced Code.
	Origin     string
	Specifiers []plugin.Specifier
	// Deps is parallel to Specifiers; "" marks an external or unresolved reference.
	Deps []string

	Failed bool
	Cached bool
}

// Commit copies the transformed module into the record.
func (r *Record) Commit(m *plugin.Module) {
	r.File = m.File
	r.Raw = m.Raw
	r.Code = m.Code
	r.Kind = m.Kind
	r.Map = m.Map
	r.Origin = m.Origin
	r.Specifiers = m.Specifiers
	r.Deps = make([]string, len(m.Specifiers))
}

// Module rebuilds the plugin representation, e.g. after a cache hit.
func (r *Record) Module() *plugin.Module {
	return &plugin.Module{
		ID:         r.ID,
		File:       r.File,
		Raw:        r.Raw,
		Code:       r.Code,
		Kind:       r.Kind,
		Map:        r.Map,
		Entry:      r.Entry,
		Origin:     r.Origin,
		Specifiers: r.Specifiers,
	}
}

// DepIDs returns resolved dependencies without blanks or repeats, in written order.
func (r *Record) DepIDs() []string {
	out := make([]string, 0, len(r.Deps))
	for _, d := range r.Deps {
		if d != "" && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

// Graph is an arena of records keyed by resolved identity. Edges are stored
// as identities in Record.Deps, so cycles need no special ownership.
type Graph struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []*Record
	entries []string
	limit   int
	frozen  bool
}

// New creates a graph holding at most limit records (limit <= 0: unbounded).
func New(limit int) *Graph {
	return &Graph{records: make(map[string]*Record), limit: limit}
}

// Claim atomically looks up id and inserts a fresh record when absent.
// claimed is true only for the caller that created the record, which then
// owns its processing.
func (g *Graph) Claim(id string) (rec *Record, claimed bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if rec, ok := g.records[id]; ok {
		return rec, false, nil
	}
	if g.frozen {
		return nil, false, ErrFrozen
	}
	if g.limit > 0 && len(g.order) >= g.limit {
		return nil, false, &OverflowError{Limit: g.limit, ID: id}
	}
	index, err := safecast.Conv[ModuleID](len(g.order))
	if err != nil {
		return nil, false, fmt.Errorf("module id overflow: %w", err)
	}
	rec = &Record{ID: id, Index: index, Entry: slices.Contains(g.entries, id)}
	g.records[id] = rec
	g.order = append(g.order, rec)
	return rec, true, nil
}

// AddEntry marks id as an entry. Entries keep the order they were added in.
func (g *Graph) AddEntry(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if slices.Contains(g.entries, id) {
		return
	}
	g.entries = append(g.entries, id)
	if rec, ok := g.records[id]; ok {
		rec.Entry = true
	}
}

func (g *Graph) Entries() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.entries)
}

func (g *Graph) Get(id string) (*Record, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[id]
	return rec, ok
}

func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

// Records returns every record in first-discovery order.
func (g *Graph) Records() []*Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.order)
}

// Freeze forbids further claims.
func (g *Graph) Freeze() {
	g.mu.Lock()
	g.frozen = true
	g.mu.Unlock()
}

func (g *Graph) Frozen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frozen
}

// Order returns the modules reachable from roots in dependency-first order:
// a depth-first post-order following dependencies as written. An edge back
// to a module still on the stack is skipped, which breaks cycles at the
// first module discovered on them. Failed modules are left out together
// with every module only they reach.
func (g *Graph) Order(roots ...string) []*Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	visited := make(map[string]bool, len(g.records))
	out := make([]*Record, 0, len(g.records))
	var visit func(id string)
	visit = func(id string) {
		rec, ok := g.records[id]
		if !ok || visited[id] || rec.Failed {
			return
		}
		visited[id] = true
		for _, dep := range rec.DepIDs() {
			visit(dep)
		}
		out = append(out, rec)
	}
	for _, id := range roots {
		visit(id)
	}
	return out
}

// CyclePaths lists each import cycle reachable from the entries once, as
// the chain of identities starting at the smallest one and ending where it
// started.
func (g *Graph) CyclePaths() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	const (
		unvisited = iota
		onStack
		done
	)
	state := make(map[string]int, len(g.records))
	var stack []string
	seen := make(map[string]bool)
	var cycles [][]string
	var visit func(id string)
	visit = func(id string) {
		rec, ok := g.records[id]
		if !ok || rec.Failed {
			return
		}
		state[id] = onStack
		stack = append(stack, id)
		for _, dep := range rec.DepIDs() {
			switch state[dep] {
			case unvisited:
				visit(dep)
			case onStack:
				at := slices.Index(stack, dep)
				cyc := rotate(stack[at:])
				key := fmt.Sprint(cyc)
				if !seen[key] {
					seen[key] = true
					cycles = append(cycles, append(cyc, cyc[0]))
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = done
	}
	for _, id := range g.entries {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return cycles
}

// rotate returns a copy of cyc starting at its smallest element.
func rotate(cyc []string) []string {
	minAt := 0
	for i, id := range cyc {
		if id < cyc[minAt] {
			minAt = i
		}
	}
	out := make([]string, 0, len(cyc)+1)
	out = append(out, cyc[minAt:]...)
	return append(out, cyc[:minAt]...)
}
