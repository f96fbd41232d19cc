// Package esm flattens ES module syntax for concatenation into a bundle.
//
// Import statements are removed and their sources declared as specifiers;
// bindings are matched by name across the concatenated scope. Default
// imports and exports meet through a per-module variable named after the
// file (see DefaultName). `export` keywords are stripped from non-entry
// modules, and from every module in iife output. Top-level `this` becomes
// `undefined`, as it would be inside a real module.
package esm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"weld/internal/diag"
	"weld/internal/plugin"
	"weld/internal/posmap"
)

const Name = "esm"

type Plugin struct {
	plugin.Base
	keepEntryExports bool
	rewriteThis      bool
}

// New is the registry factory. Options: rewrite_this (default true).
func New(opts plugin.Options, env plugin.Env) (plugin.Plugin, error) {
	if err := opts.Only("rewrite_this"); err != nil {
		return nil, err
	}
	rewriteThis, err := opts.Bool("rewrite_this", true)
	if err != nil {
		return nil, err
	}
	return &Plugin{
		Base:             plugin.NewBase(Name, plugin.PhaseTransform, plugin.KindJS, plugin.KindTS),
		keepEntryExports: env.Format == "" || env.Format == "esm",
		rewriteThis:      rewriteThis,
	}, nil
}

func (p *Plugin) Transform(ctx context.Context, m *plugin.Module, tc *plugin.Context) error {
	g, err := grammarFor(m)
	if err != nil {
		return err
	}
	tree, err := g.parse(m.Code)
	if err != nil {
		return err
	}
	defer tree.Close()
	root := tree.RootNode()

	s := &scan{
		src:         m.Code,
		tc:          tc,
		rw:          posmap.NewRewriter(m.Code),
		keepExports: m.Entry && p.keepEntryExports,
	}
	for i := uint(0); i < root.ChildCount(); i++ {
		stmt := root.Child(i)
		if stmt == nil {
			continue
		}
		switch stmt.Kind() {
		case "import_statement":
			s.importStatement(stmt)
		case "export_statement":
			s.exportStatement(stmt, m.ID)
		}
	}
	if p.rewriteThis {
		s.topLevelThis(g, root)
	}
	return tc.Rewrite(s.rw, "")
}

type scan struct {
	src         []byte
	tc          *plugin.Context
	rw          *posmap.Rewriter
	keepExports bool
}

func (s *scan) text(n *sitter.Node) string {
	return string(s.src[n.StartByte():n.EndByte()])
}

// source returns the unquoted specifier of a statement's source field and
// its offsets inside the quotes.
func (s *scan) source(stmt *sitter.Node) (string, int, int, bool) {
	src := stmt.ChildByFieldName("source")
	if src == nil {
		return "", 0, 0, false
	}
	start, end := int(src.StartByte())+1, int(src.EndByte())-1
	if end < start {
		return "", 0, 0, false
	}
	return string(s.src[start:end]), start, end, true
}

// remove deletes a whole statement plus its line break, or replaces it.
func (s *scan) replaceStatement(stmt *sitter.Node, with string) {
	start, end := int(stmt.StartByte()), int(stmt.EndByte())
	if with == "" && end < len(s.src) && s.src[end] == '\n' {
		end++
	}
	s.rw.Replace(start, end, with)
}

func hasChildKind(n *sitter.Node, kind string) bool {
	for i := uint(0); i < n.ChildCount(); i++ {
		if c := n.Child(i); c != nil && c.Kind() == kind {
			return true
		}
	}
	return false
}

func (s *scan) importStatement(stmt *sitter.Node) {
	spec, start, end, ok := s.source(stmt)
	if !ok {
		return
	}
	// import type { T } from './t' carries no runtime dependency
	if hasChildKind(stmt, "type") {
		s.replaceStatement(stmt, "")
		return
	}
	if s.tc.IsExternal(spec) {
		s.tc.AddSpecifier(spec, start, end)
		return
	}
	s.tc.AddSpecifier(spec, start, end)

	var bindings []string
	for i := uint(0); i < stmt.ChildCount(); i++ {
		clause := stmt.Child(i)
		if clause == nil || clause.Kind() != "import_clause" {
			continue
		}
		bindings = s.importBindings(clause, spec)
	}
	s.replaceStatement(stmt, strings.Join(bindings, " "))
}

func (s *scan) importBindings(clause *sitter.Node, spec string) []string {
	var out []string
	for i := uint(0); i < clause.ChildCount(); i++ {
		c := clause.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "identifier":
			out = append(out, fmt.Sprintf("const %s = %s;", s.text(c), DefaultName(spec)))
		case "named_imports":
			for j := uint(0); j < c.ChildCount(); j++ {
				is := c.Child(j)
				if is == nil || is.Kind() != "import_specifier" || hasChildKind(is, "type") {
					continue
				}
				name, alias := is.ChildByFieldName("name"), is.ChildByFieldName("alias")
				if name == nil || alias == nil {
					continue
				}
				if local, imported := s.text(alias), s.text(name); local != imported {
					if imported == "default" {
						imported = DefaultName(spec)
					}
					out = append(out, fmt.Sprintf("const %s = %s;", local, imported))
				}
			}
		}
	}
	return out
}

func (s *scan) exportStatement(stmt *sitter.Node, moduleID string) {
	if spec, start, end, ok := s.source(stmt); ok {
		if hasChildKind(stmt, "type") {
			s.replaceStatement(stmt, "")
			return
		}
		s.tc.AddSpecifier(spec, start, end)
		if s.tc.IsExternal(spec) {
			return
		}
		with := ""
		if s.keepExports {
			for i := uint(0); i < stmt.ChildCount(); i++ {
				if c := stmt.Child(i); c != nil && c.Kind() == "export_clause" {
					with = "export " + s.text(c) + ";"
				}
			}
		}
		s.replaceStatement(stmt, with)
		return
	}
	if s.keepExports {
		return
	}

	isDefault := hasChildKind(stmt, "default")
	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		// export [default] function f() {} -> function f() {}
		prefixEnd := int(decl.StartByte())
		if isDefault && decl.ChildByFieldName("name") == nil {
			s.rw.Replace(int(stmt.StartByte()), prefixEnd, "var "+DefaultName(moduleID)+" = ")
			return
		}
		s.rw.Delete(int(stmt.StartByte()), prefixEnd)
		if isDefault {
			if name := decl.ChildByFieldName("name"); name != nil {
				s.rw.Insert(int(decl.EndByte()), fmt.Sprintf("\nvar %s = %s;", DefaultName(moduleID), s.text(name)))
			}
		}
		return
	}
	if value := stmt.ChildByFieldName("value"); value != nil && isDefault {
		s.rw.Replace(int(stmt.StartByte()), int(value.StartByte()), "var "+DefaultName(moduleID)+" = ")
		return
	}

	// export { a, b as c };
	var aliases []string
	for i := uint(0); i < stmt.ChildCount(); i++ {
		c := stmt.Child(i)
		if c == nil || c.Kind() != "export_clause" {
			continue
		}
		for j := uint(0); j < c.ChildCount(); j++ {
			es := c.Child(j)
			if es == nil || es.Kind() != "export_specifier" {
				continue
			}
			name, alias := es.ChildByFieldName("name"), es.ChildByFieldName("alias")
			if name == nil || alias == nil || s.text(name) == s.text(alias) {
				continue
			}
			exported := s.text(alias)
			if exported == "default" {
				exported = DefaultName(moduleID)
			}
			aliases = append(aliases, fmt.Sprintf("var %s = %s;", exported, s.text(name)))
		}
	}
	s.replaceStatement(stmt, strings.Join(aliases, " "))
}

// scopeKinds bind their own `this`; arrow functions do not.
var scopeKinds = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"generator_function":             true,
	"generator_function_declaration": true,
	"method_definition":              true,
	"class_body":                     true,
}

func (s *scan) topLevelThis(g *grammar, root *sitter.Node) {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	matches := cursor.Matches(g.this, root, s.src)
	for match := matches.Next(); match != nil; match = matches.Next() {
		for _, capture := range match.Captures {
			node := capture.Node
			if !topLevel(&node) {
				continue
			}
			start, end := int(node.StartByte()), int(node.EndByte())
			s.tc.Warn(diag.ThisIsUndefined, s.tc.Span(start, end),
				"`this` has been rewritten to `undefined` at the top level of an ES module")
			s.rw.Replace(start, end, "undefined")
		}
	}
}

func topLevel(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if scopeKinds[p.Kind()] {
			return false
		}
	}
	return true
}

// DefaultName is the variable a module's default export is bound to. It is
// derived from the file name so importers can compute it from the
// specifier alone: "./button.ts", "./button" and "/p/button.ts" agree, and
// index files take their directory name.
func DefaultName(path string) string {
	path = filepath.ToSlash(path)
	base := strings.TrimSuffix(filepathBase(path), filepath.Ext(path))
	if base == "index" || base == "" || base == "." || base == ".." {
		dir := strings.TrimSuffix(path, "/"+filepathBase(path))
		if base == "" || base == "." || base == ".." {
			dir = strings.TrimSuffix(path, "/")
		}
		base = filepathBase(dir)
	}
	var b strings.Builder
	b.WriteString("__default_")
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func filepathBase(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func hasExt(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}
