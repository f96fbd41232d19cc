package plugin

import (
	"weld/internal/posmap"
	"weld/internal/source"
)

// Specifier is an outgoing reference as written in the module.
type Specifier struct {
	Path string
	// Span locates the reference in the original source; invalid when the
	// text was synthesized by a stage.
	Span source.Span
	// External specifiers stay in the output and are never resolved.
	External bool
	// Stage is the plugin that declared the reference.
	Stage string
}

// Module is the intermediate representation a chain works on. Code is
// replaced, never modified in place, so earlier slices stay valid.
type Module struct {
	ID    string
	File  source.FileID
	Raw   []byte
	Code  []byte
	Kind  Kind
	Map   *posmap.Map
	Entry bool
	// Origin names the stage that produced Code; empty while Code == Raw.
	Origin     string
	Specifiers []Specifier
}

// NewModule wraps freshly loaded source.
func NewModule(id string, file source.FileID, raw []byte, entry bool) *Module {
	return &Module{
		ID:    id,
		File:  file,
		Raw:   raw,
		Code:  raw,
		Kind:  KindFromPath(id),
		Map:   posmap.Identity(len(raw)),
		Entry: entry,
	}
}

// Clone returns a copy safe to hand to another goroutine. Byte slices are
// shared because they are never modified.
func (m *Module) Clone() *Module {
	c := *m
	c.Specifiers = append([]Specifier(nil), m.Specifiers...)
	if m.Map != nil {
		segs := append([]posmap.Segment(nil), m.Map.Segments...)
		c.Map = &posmap.Map{Segments: segs}
	}
	return &c
}

// Internal returns the specifiers that must be resolved, in written order.
func (m *Module) Internal() []Specifier {
	out := make([]Specifier, 0, len(m.Specifiers))
	for _, s := range m.Specifiers {
		if !s.External {
			out = append(out, s)
		}
	}
	return out
}
