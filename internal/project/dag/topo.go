package dag

import (
	"slices"
)

// Topo is a Kahn ordering of a graph snapshot along import edges reversed,
// so dependencies come before their importers.
type Topo struct {
	Order   []ModuleID   // modules whose dependencies are all acyclic
	Batches [][]ModuleID // waves of modules with no pending dependency
	Cyclic  bool
	Cycles  []ModuleID // modules on or between import cycles
}

// ToposortKahn orders every non-failed record of g.
func ToposortKahn(g *Graph) (*Topo, ModuleIndex) {
	records := g.Records()
	idx := BuildIndex(records)
	n := len(records)

	present := make([]bool, n)
	for i, rec := range records {
		present[i] = !rec.Failed
	}
	// importers[d] lists modules that import d; pending[m] counts m's unresolved deps
	importers := make([][]ModuleID, n)
	pending := make([]int, n)
	for i, rec := range records {
		if !present[i] {
			continue
		}
		for _, dep := range rec.DepIDs() {
			d, ok := idx.NameToID[dep]
			if !ok || !present[int(d)] {
				continue
			}
			importers[int(d)] = append(importers[int(d)], ModuleID(i))
			pending[i]++
		}
	}

	topo := &Topo{Order: make([]ModuleID, 0, n)}
	active := 0
	current := make([]ModuleID, 0, n)
	for i := range n {
		if !present[i] {
			continue
		}
		active++
		if pending[i] == 0 {
			current = append(current, ModuleID(i))
		}
	}

	visited := 0
	for len(current) > 0 {
		batch := slices.Clone(current)
		topo.Batches = append(topo.Batches, batch)

		next := make([]ModuleID, 0)
		for _, id := range batch {
			topo.Order = append(topo.Order, id)
			visited++
			for _, imp := range importers[int(id)] {
				pending[int(imp)]--
				if pending[int(imp)] == 0 {
					next = append(next, imp)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	if visited != active {
		topo.Cyclic = true
		topo.Cycles = prune(pending, importers)
	}
	return topo, idx
}

// prune narrows the Kahn residue (cycles plus everything importing them) to
// the modules that are also imported from within the residue.
func prune(pending []int, importers [][]ModuleID) []ModuleID {
	in := make([]bool, len(pending))
	for i, p := range pending {
		in[i] = p > 0
	}
	for changed := true; changed; {
		changed = false
		for i := range in {
			if !in[i] {
				continue
			}
			imported := false
			for _, imp := range importers[i] {
				if in[int(imp)] {
					imported = true
					break
				}
			}
			if !imported {
				in[i] = false
				changed = true
			}
		}
	}
	var out []ModuleID
	for i, ok := range in {
		if ok {
			out = append(out, ModuleID(i))
		}
	}
	return out
}
