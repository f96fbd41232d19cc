// Package emit serializes a frozen module graph into bundles with source
// maps and size statistics.
package emit

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"fortio.org/safecast"

	"weld/internal/config"
	"weld/internal/diag"
	"weld/internal/plugins/esm"
	"weld/internal/project/dag"
	"weld/internal/source"
)

// Options mirror the output section of the configuration.
type Options struct {
	// Root is the project root; module markers are relative to it.
	Root string
	// OutDir receives one bundle per entry unless File is set.
	OutDir string
	// File is the single bundle holding every entry.
	File      string
	Format    config.Format
	SourceMap bool
	// Name, with the iife format, is the global receiving the first
	// entry's default export.
	Name     string
	FileSet  *source.FileSet
	Reporter diag.Reporter
}

// Artifact is one emitted bundle. Nothing is written to disk here.
type Artifact struct {
	Path    string // absolute
	Code    []byte
	Map     []byte // nil without source maps
	Entries []string
	Modules []string
}

// MapPath is the companion source map path.
func (a Artifact) MapPath() string { return a.Path + ".map" }

type plan struct {
	path  string
	roots []string
}

// Emit renders every bundle of g. Modules come in dependency-first order;
// failed modules and what only they import are left out.
func Emit(g *dag.Graph, opts Options) ([]Artifact, Stats, error) {
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	if opts.Format == "" {
		opts.Format = config.FormatESM
	}
	if opts.OutDir == "" && opts.File != "" {
		opts.OutDir = filepath.Dir(opts.File)
	}

	plans, err := bundlePlans(g.Entries(), opts)
	if err != nil {
		return nil, Stats{}, err
	}
	e := &emitter{graph: g, opts: opts, warned: make(map[string]bool)}
	artifacts := make([]Artifact, 0, len(plans))
	var stats Stats
	for _, p := range plans {
		art, st, err := e.bundle(p)
		if err != nil {
			return artifacts, stats, fmt.Errorf("emit %s: %w", p.path, err)
		}
		artifacts = append(artifacts, art)
		stats.Outputs = append(stats.Outputs, st)
	}
	return artifacts, stats, nil
}

// bundlePlans names one output per entry after the entry's file stem, or a
// single output holding every entry.
func bundlePlans(entries []string, opts Options) ([]plan, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries to emit")
	}
	if opts.File != "" {
		return []plan{{path: opts.File, roots: entries}}, nil
	}
	plans := make([]plan, 0, len(entries))
	taken := make(map[string]bool, len(entries))
	for _, id := range entries {
		stem := strings.TrimSuffix(filepath.Base(id), filepath.Ext(id))
		if stem == "index" {
			stem = filepath.Base(filepath.Dir(id))
		}
		name := stem + ".js"
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d.js", stem, n)
		}
		taken[name] = true
		plans = append(plans, plan{path: filepath.Join(opts.OutDir, name), roots: []string{id}})
	}
	return plans, nil
}

type emitter struct {
	graph  *dag.Graph
	opts   Options
	warned map[string]bool
}

// bundleWriter keeps the output text and its source map in step.
type bundleWriter struct {
	out bytes.Buffer
	mb  mapBuilder
}

func (w *bundleWriter) write(b []byte) {
	w.out.Write(b)
	w.mb.advance(b)
}

func (w *bundleWriter) writeString(s string) { w.write([]byte(s)) }

func (e *emitter) bundle(p plan) (Artifact, OutputStat, error) {
	art := Artifact{Path: p.path, Entries: p.roots}
	st := OutputStat{Path: e.outRel(p.path)}
	w := &bundleWriter{}

	iife := e.opts.Format == config.FormatIIFE
	exportName := ""
	if iife && e.opts.Name != "" {
		if entry, ok := e.graph.Get(p.roots[0]); ok && !entry.Failed &&
			bytes.Contains(entry.Code, []byte("var "+esm.DefaultName(entry.ID)+" ")) {
			exportName = esm.DefaultName(entry.ID)
		}
	}
	switch {
	case exportName != "":
		w.writeString("var " + e.opts.Name + " = (function () {\n")
	case iife:
		w.writeString("(function () {\n")
	}
	if iife {
		w.writeString("'use strict';\n\n")
	}

	for _, rec := range e.graph.Order(p.roots...) {
		if !rec.Kind.IsScript() {
			e.nonJS(rec)
			continue
		}
		file := e.opts.FileSet.Get(rec.File)
		if file == nil {
			return art, st, fmt.Errorf("module %s has no loaded source", rec.ID)
		}
		rel := relTo(e.opts.Root, rec.ID)
		w.writeString("// " + rel + "\n")
		start := w.out.Len()
		src := w.mb.addSource(relTo(e.opts.OutDir, rec.ID), file.Content)
		if err := writeModule(w, rec, file, src); err != nil {
			return art, st, fmt.Errorf("%s: %w", rel, err)
		}
		if n := len(rec.Code); n > 0 && rec.Code[n-1] != '\n' {
			w.writeString("\n")
		}
		art.Modules = append(art.Modules, rec.ID)
		st.Modules = append(st.Modules, ModuleStat{ID: rec.ID, Path: rel, Raw: len(rec.Raw), Final: w.out.Len() - start})
		st.Raw += len(rec.Raw)
	}

	switch {
	case exportName != "":
		w.writeString("\nreturn " + exportName + ";\n})();\n")
	case iife:
		w.writeString("\n})();\n")
	}

	if e.opts.SourceMap {
		base := filepath.Base(p.path)
		m, err := w.mb.json(base)
		if err != nil {
			return art, st, err
		}
		art.Map = m
		w.writeString("//# sourceMappingURL=" + base + ".map\n")
	}

	art.Code = w.out.Bytes()
	st.Final = len(art.Code)
	gz, br, err := compressedSizes(art.Code)
	if err != nil {
		return art, st, err
	}
	st.Gzip, st.Brotli = gz, br
	return art, st, nil
}

func (e *emitter) nonJS(rec *dag.Record) {
	if e.warned[rec.ID] {
		return
	}
	e.warned[rec.ID] = true
	e.opts.Reporter.Report(diag.NewWarning(diag.NonJSModule, source.Span{},
		fmt.Sprintf("%s is still %s after the plugin chain and was left out; add a plugin that handles it",
			relTo(e.opts.Root, rec.ID), rec.Kind)).WithModule(rec.ID).WithStage("emit"))
}

func (e *emitter) outRel(path string) string {
	return relTo(e.opts.OutDir, path)
}

// writeModule copies rec.Code into the bundle and records a mapping at the
// start of every mapped segment and at every line start inside one.
// Synthesized text gets no mapping of its own.
func writeModule(w *bundleWriter, rec *dag.Record, file *source.File, src int) error {
	code := rec.Code
	mark := func(in int) error {
		off, err := safecast.Conv[uint32](in)
		if err != nil {
			return fmt.Errorf("source offset %d: %w", in, err)
		}
		lc := file.Position(off)
		lineStart := file.LineStart(lc.Line)
		col := 0
		if int(lineStart) <= in && in <= len(file.Content) {
			col = utf16Len(file.Content[lineStart:off])
		}
		w.mb.mark(src, int(lc.Line)-1, col)
		return nil
	}

	pos := 0
	if rec.Map != nil {
		if err := rec.Map.Validate(); err != nil {
			return err
		}
		for _, s := range rec.Map.Segments {
			out, in, n := int(s.Out), int(s.In), int(s.Len)
			if out < pos || out+n > len(code) {
				return fmt.Errorf("position map segment %+v outside code", s)
			}
			w.write(code[pos:out])
			if err := mark(in); err != nil {
				return err
			}
			for i := out; i < out+n; {
				j := bytes.IndexByte(code[i:out+n], '\n')
				if j < 0 {
					w.write(code[i : out+n])
					break
				}
				w.write(code[i : i+j+1])
				i += j + 1
				if i < out+n {
					if err := mark(in + i - out); err != nil {
						return err
					}
				}
			}
			pos = out + n
		}
	}
	w.write(code[pos:])
	return nil
}

// relTo returns path relative to base with forward slashes, or path itself
// when no relative form exists.
func relTo(base, path string) string {
	if base == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
