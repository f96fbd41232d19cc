package posmap

import (
	"fmt"
	"sort"
)

type edit struct {
	start int
	end   int
	text  string
	seq   int
}

// Rewriter collects non-overlapping edits against a source buffer and applies
// them in one pass, producing the new text and its position Map.
type Rewriter struct {
	src   []byte
	edits []edit
}

// NewRewriter returns a Rewriter over src. src is never modified.
func NewRewriter(src []byte) *Rewriter {
	return &Rewriter{src: src}
}

// Replace substitutes src[start:end] with text.
func (r *Rewriter) Replace(start, end int, text string) {
	r.edits = append(r.edits, edit{start: start, end: end, text: text, seq: len(r.edits)})
}

// Insert adds text before src[at]. Several inserts at one offset keep call order.
func (r *Rewriter) Insert(at int, text string) {
	r.Replace(at, at, text)
}

// Delete removes src[start:end].
func (r *Rewriter) Delete(start, end int) {
	r.Replace(start, end, "")
}

// Changed reports whether any edit was recorded.
func (r *Rewriter) Changed() bool {
	return len(r.edits) > 0
}

// Apply produces the rewritten text and a Map from its offsets back to src.
func (r *Rewriter) Apply() ([]byte, *Map, error) {
	if len(r.edits) == 0 {
		out := make([]byte, len(r.src))
		copy(out, r.src)
		return out, Identity(len(r.src)), nil
	}

	edits := make([]edit, len(r.edits))
	copy(edits, r.edits)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		// pure insertions go before a replacement starting at the same offset
		if (edits[i].start == edits[i].end) != (edits[j].start == edits[j].end) {
			return edits[i].start == edits[i].end
		}
		return edits[i].seq < edits[j].seq
	})

	out := make([]byte, 0, len(r.src))
	m := &Map{}
	cursor := 0
	for _, e := range edits {
		if e.start < 0 || e.end < e.start || e.end > len(r.src) {
			return nil, nil, fmt.Errorf("edit [%d,%d) out of range for %d bytes", e.start, e.end, len(r.src))
		}
		if e.start < cursor {
			return nil, nil, fmt.Errorf("edit [%d,%d) overlaps a previous edit ending at %d", e.start, e.end, cursor)
		}
		if e.start > cursor {
			m.append(Segment{Out: toU32(len(out)), In: toU32(cursor), Len: toU32(e.start - cursor)})
			out = append(out, r.src[cursor:e.start]...)
		}
		out = append(out, e.text...)
		cursor = e.end
	}
	if cursor < len(r.src) {
		m.append(Segment{Out: toU32(len(out)), In: toU32(cursor), Len: toU32(len(r.src) - cursor)})
		out = append(out, r.src[cursor:]...)
	}
	return out, m, nil
}
