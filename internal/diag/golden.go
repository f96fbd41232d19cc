package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"weld/internal/source"
)

type goldenDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// FormatGoldenDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation suitable for golden files: sorted by location, then severity,
// code and message.
func FormatGoldenDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	rendered := render(diags, fs, includeNotes)
	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})
	return join(rendered)
}

// FormatShortDiagnostics renders one line per diagnostic in emission order.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	return join(render(diags, fs, includeNotes))
}

func join(rendered []goldenDiagnostic) string {
	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s", d.Severity, d.Code, d.Path)
		if d.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", d.Line, d.Column)
		}
		fmt.Fprintf(&b, " %s", d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func render(diags []Diagnostic, fs *source.FileSet, includeNotes bool) []goldenDiagnostic {
	out := make([]goldenDiagnostic, 0, len(diags))
	for i := range diags {
		d := &diags[i]
		loc := Locate(fs, d.Primary, d.Module)
		out = append(out, goldenDiagnostic{
			Severity: d.Severity.Label(),
			Code:     d.Code.ID(),
			Path:     loc.Path,
			Line:     loc.Line,
			Column:   loc.Column,
			Message:  sanitizeMessage(d.Message),
		})
		if !includeNotes {
			continue
		}
		for _, note := range d.Notes {
			nloc := Locate(fs, note.Span, d.Module)
			out = append(out, goldenDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Path:     nloc.Path,
				Line:     nloc.Line,
				Column:   nloc.Column,
				Message:  sanitizeMessage(note.Msg),
			})
		}
	}
	return out
}

// Location is a resolved, display-ready position. Line is 0 when only the
// module is known.
type Location struct {
	Path   string
	Line   uint32
	Column uint32
}

// Locate resolves span against fs, falling back to the module identity and
// finally to "<build>" for run-level diagnostics.
func Locate(fs *source.FileSet, span source.Span, module string) Location {
	if fs != nil && span.IsValid() {
		if file := fs.Get(span.File); file != nil {
			start, _ := fs.Resolve(span)
			return Location{
				Path:   normalizePath(file.RelPath(fs.BaseDir())),
				Line:   start.Line,
				Column: start.Col,
			}
		}
	}
	if module != "" {
		p := module
		if fs != nil && filepath.IsAbs(module) {
			if rel, err := filepath.Rel(fs.BaseDir(), module); err == nil {
				p = rel
			}
		}
		return Location{Path: normalizePath(p)}
	}
	return Location{Path: "<build>"}
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
