package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"weld/internal/diag"
	"weld/internal/source"
)

type palette struct {
	err, warn, info, note, path, gutter, caret *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan),
		note:   color.New(color.FgBlue, color.Bold),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.path, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty renders diagnostics in emission order:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message> [stage]
//	   3 | import x from "./x";
//	     |               ^~~~~
//	  note: <message>
func Pretty(w io.Writer, items []diag.Diagnostic, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	n := len(items)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	for i := range n {
		d := &items[i]
		loc := location(fs, d.Primary, d.Module, opts.PathMode)
		fmt.Fprintf(w, "%s: %s %s: %s", pal.path.Sprint(loc), pal.severity(d.Severity).Sprint(d.Severity.String()), d.Code.ID(), d.Message)
		if d.Stage != "" {
			fmt.Fprintf(w, " [%s]", d.Stage)
		}
		fmt.Fprintln(w)
		if opts.ShowSource {
			writeSnippet(w, fs, d.Primary, pal)
		}
		if opts.ShowNotes {
			for _, note := range d.Notes {
				prefix := "  " + pal.note.Sprint("note") + ": "
				if note.Span.IsValid() {
					fmt.Fprintf(w, "%s%s: %s\n", prefix, location(fs, note.Span, d.Module, opts.PathMode), note.Msg)
					continue
				}
				fmt.Fprintf(w, "%s%s\n", prefix, note.Msg)
			}
		}
	}
	if n < len(items) {
		fmt.Fprintf(w, "... and %d more\n", len(items)-n)
	}
}

func location(fs *source.FileSet, span source.Span, module string, mode PathMode) string {
	base := ""
	if fs != nil {
		base = fs.BaseDir()
	}
	if fs != nil && span.IsValid() {
		if f := fs.Get(span.File); f != nil {
			pos := f.Position(span.Start)
			return fmt.Sprintf("%s:%d:%d", formatPath(f.Path, base, mode), pos.Line, pos.Col)
		}
	}
	if module != "" {
		return formatPath(module, base, mode)
	}
	return "weld"
}

func writeSnippet(w io.Writer, fs *source.FileSet, span source.Span, pal palette) {
	if fs == nil || !span.IsValid() {
		return
	}
	f := fs.Get(span.File)
	if f == nil {
		return
	}
	start, end := fs.Resolve(span)
	line := strings.TrimRight(f.GetLine(start.Line), "\r")
	gutter := fmt.Sprintf("%4d | ", start.Line)
	fmt.Fprintf(w, "%s%s\n", pal.gutter.Sprint(gutter), expandTabs(line))

	col := int(start.Col) - 1
	col = min(max(col, 0), len(line))
	// display width, so tabs and wide runes line the caret up
	pad := strings.Repeat(" ", runewidth.StringWidth(expandTabs(line[:col])))
	width := 1
	if end.Line == start.Line && end.Col > start.Col {
		stop := min(int(end.Col)-1, len(line))
		width = max(runewidth.StringWidth(expandTabs(line[col:stop])), 1)
	}
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, "%s%s%s\n", pal.gutter.Sprint(strings.Repeat(" ", len(gutter)-2)+"| "), pad, pal.caret.Sprint(underline))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
