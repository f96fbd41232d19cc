// Package posmap tracks how byte offsets move when a module's text is rewritten.
//
// Every text-mutating transform stage produces a Map from its output offsets
// back to its input offsets. Maps compose, so a module always carries a single
// Map from its current representation back to the original source bytes,
// which is what the emitter needs to build source maps.
//
// Bytes copied verbatim by a rewrite are covered by segments; inserted or
// replaced text is not mapped at all.
package posmap

import (
	"fmt"
	"sort"

	"fortio.org/safecast"
)

// Segment maps output bytes [Out, Out+Len) onto input bytes [In, In+Len).
type Segment struct {
	Out uint32
	In  uint32
	Len uint32
}

// Map is an ordered, non-overlapping list of segments sorted by Out.
type Map struct {
	Segments []Segment
}

// Identity returns a map covering n bytes that maps every offset to itself.
func Identity(n int) *Map {
	if n <= 0 {
		return &Map{}
	}
	return &Map{Segments: []Segment{{Out: 0, In: 0, Len: toU32(n)}}}
}

// Lookup maps an output offset back to its input offset.
func (m *Map) Lookup(off uint32) (uint32, bool) {
	seg, ok := m.find(off)
	if !ok {
		return 0, false
	}
	return seg.In + (off - seg.Out), true
}

// SegmentAt returns the segment that covers off.
func (m *Map) SegmentAt(off uint32) (Segment, bool) {
	return m.find(off)
}

func (m *Map) find(off uint32) (Segment, bool) {
	if m == nil {
		return Segment{}, false
	}
	segs := m.Segments
	i := sort.Search(len(segs), func(i int) bool { return segs[i].Out+segs[i].Len > off })
	if i == len(segs) || segs[i].Out > off {
		return Segment{}, false
	}
	return segs[i], true
}

// Compose chains two maps: outer maps stage-2 output to stage-2 input (which is
// stage-1 output) and inner maps stage-1 output to the original. The result
// maps stage-2 output straight to the original.
func Compose(outer, inner *Map) *Map {
	if outer == nil || inner == nil {
		return &Map{}
	}
	out := &Map{Segments: make([]Segment, 0, len(outer.Segments))}
	for _, o := range outer.Segments {
		lo, hi := o.In, o.In+o.Len
		j := sort.Search(len(inner.Segments), func(j int) bool {
			s := inner.Segments[j]
			return s.Out+s.Len > lo
		})
		for ; j < len(inner.Segments); j++ {
			s := inner.Segments[j]
			if s.Out >= hi {
				break
			}
			start := max(lo, s.Out)
			end := min(hi, s.Out+s.Len)
			if end <= start {
				continue
			}
			out.append(Segment{
				Out: o.Out + (start - lo),
				In:  s.In + (start - s.Out),
				Len: end - start,
			})
		}
	}
	return out
}

// append adds seg, merging it with the previous segment when both are contiguous.
func (m *Map) append(seg Segment) {
	if n := len(m.Segments); n > 0 {
		last := &m.Segments[n-1]
		if last.Out+last.Len == seg.Out && last.In+last.Len == seg.In {
			last.Len += seg.Len
			return
		}
	}
	m.Segments = append(m.Segments, seg)
}

// Validate checks ordering and overlap invariants.
func (m *Map) Validate() error {
	if m == nil {
		return nil
	}
	var prevEnd uint32
	for i, s := range m.Segments {
		if s.Len == 0 {
			return fmt.Errorf("segment %d is empty", i)
		}
		if i > 0 && s.Out < prevEnd {
			return fmt.Errorf("segment %d overlaps previous (out %d < %d)", i, s.Out, prevEnd)
		}
		prevEnd = s.Out + s.Len
	}
	return nil
}

func toU32(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return v
}
