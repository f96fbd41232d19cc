package esm

import (
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tsjs "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tsts "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"weld/internal/plugin"
)

// thisQuery finds every `this`; scope filtering happens on the tree.
const thisQuery = `(this) @this`

type grammar struct {
	lang  *sitter.Language
	this  *sitter.Query
	ready sync.Once
	err   error
}

var (
	jsGrammar  = &grammar{}
	tsGrammar  = &grammar{}
	tsxGrammar = &grammar{}
)

func grammarFor(m *plugin.Module) (*grammar, error) {
	var g *grammar
	var load func() *sitter.Language
	switch {
	case m.Kind == plugin.KindTS && hasExt(m.ID, ".tsx"):
		g, load = tsxGrammar, func() *sitter.Language { return sitter.NewLanguage(tsts.LanguageTSX()) }
	case m.Kind == plugin.KindTS:
		g, load = tsGrammar, func() *sitter.Language { return sitter.NewLanguage(tsts.LanguageTypescript()) }
	default:
		g, load = jsGrammar, func() *sitter.Language { return sitter.NewLanguage(tsjs.Language()) }
	}
	g.ready.Do(func() {
		g.lang = load()
		q, qerr := sitter.NewQuery(g.lang, thisQuery)
		if qerr != nil {
			g.err = fmt.Errorf("compile query: %s", qerr.Message)
			return
		}
		g.this = q
	})
	return g, g.err
}

// parse returns a tree the caller must Close.
func (g *grammar) parse(src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(g.lang); err != nil {
		return nil, err
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("parser returned no tree")
	}
	return tree, nil
}
