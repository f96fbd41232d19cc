// Package testkit holds helpers shared by package tests.
package testkit

import (
	"fmt"

	"fortio.org/safecast"

	"weld/internal/plugin"
)

// CheckModuleInvariants runs a minimal set of invariants on a transformed module:
// 1) the position map is ordered and non-overlapping
// 2) every segment lies inside Code on the output side and inside Raw on the input side
// 3) every specifier span with a file points into Raw of the module's file
func CheckModuleInvariants(m *plugin.Module) error {
	if m == nil {
		return fmt.Errorf("nil module")
	}
	if m.Map == nil {
		return fmt.Errorf("module %s has no position map", m.ID)
	}
	if err := m.Map.Validate(); err != nil {
		return fmt.Errorf("module %s: %w", m.ID, err)
	}
	codeLen, err := safecast.Conv[uint32](len(m.Code))
	if err != nil {
		return fmt.Errorf("len code overflow: %w", err)
	}
	rawLen, err := safecast.Conv[uint32](len(m.Raw))
	if err != nil {
		return fmt.Errorf("len raw overflow: %w", err)
	}

	// 2) segments within bounds
	for i, s := range m.Map.Segments {
		if s.Out+s.Len > codeLen {
			return fmt.Errorf("segment %d output end %d beyond code length %d", i, s.Out+s.Len, codeLen)
		}
		if s.In+s.Len > rawLen {
			return fmt.Errorf("segment %d input end %d beyond raw length %d", i, s.In+s.Len, rawLen)
		}
		// mapped bytes are copies of the original
		if string(m.Code[s.Out:s.Out+s.Len]) != string(m.Raw[s.In:s.In+s.Len]) {
			return fmt.Errorf("segment %d maps %q to different text %q", i, m.Code[s.Out:s.Out+s.Len], m.Raw[s.In:s.In+s.Len])
		}
	}

	// 3) specifier spans
	for _, sp := range m.Specifiers {
		if !sp.Span.IsValid() {
			continue
		}
		if sp.Span.File != m.File {
			return fmt.Errorf("specifier %q span file mismatch: got=%d want=%d", sp.Path, sp.Span.File, m.File)
		}
		if sp.Span.Start > sp.Span.End || sp.Span.End > rawLen {
			return fmt.Errorf("specifier %q span %v outside source", sp.Path, sp.Span)
		}
	}
	return nil
}
