package config

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// hclFile is the top-level structure of weld.hcl:
//
//	entries = ["src/main.ts"]
//	output { dir = "dist" }
//	plugin "styles" {}
//	plugin "replace" { values = { "process.env.NODE_ENV" = "\"production\"" } }
type hclFile struct {
	Entries        []string          `hcl:"entries,optional"`
	Output         *rawOutput        `hcl:"output,block"`
	Resolve        *rawResolve       `hcl:"resolve,block"`
	Plugins        []*hclPlugin      `hcl:"plugin,block"`
	Warnings       map[string]string `hcl:"warnings,optional"`
	Minify         bool              `hcl:"minify,optional"`
	Strict         bool              `hcl:"strict,optional"`
	Timeout        string            `hcl:"timeout,optional"`
	MaxModules     int               `hcl:"max_modules,optional"`
	Jobs           int               `hcl:"jobs,optional"`
	MaxDiagnostics int               `hcl:"max_diagnostics,optional"`
	Cache          *rawCache         `hcl:"cache,block"`
	History        *rawHistory       `hcl:"history,block"`
}

type hclPlugin struct {
	Name    string   `hcl:"name,label"`
	Options hcl.Body `hcl:",remain"`
}

func decodeHCL(path string, data []byte) (rawConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return rawConfig{}, fmt.Errorf("failed to parse HCL: %w", diags)
	}

	var parsed hclFile
	if diags := gohcl.DecodeBody(file.Body, nil, &parsed); diags.HasErrors() {
		return rawConfig{}, fmt.Errorf("failed to decode HCL: %w", diags)
	}

	raw := rawConfig{
		Entries:        parsed.Entries,
		Warnings:       parsed.Warnings,
		Minify:         parsed.Minify,
		Strict:         parsed.Strict,
		Timeout:        parsed.Timeout,
		MaxModules:     parsed.MaxModules,
		Jobs:           parsed.Jobs,
		MaxDiagnostics: parsed.MaxDiagnostics,
	}
	if parsed.Output != nil {
		raw.Output = *parsed.Output
	}
	if parsed.Resolve != nil {
		raw.Resolve = *parsed.Resolve
	}
	if parsed.Cache != nil {
		raw.Cache = *parsed.Cache
	}
	if parsed.History != nil {
		raw.History = *parsed.History
	}
	for _, p := range parsed.Plugins {
		opts, err := pluginOptions(p.Options)
		if err != nil {
			return rawConfig{}, fmt.Errorf("plugin %q: %w", p.Name, err)
		}
		raw.Plugins = append(raw.Plugins, rawPlugin{Name: p.Name, Options: opts})
	}
	return raw, nil
}

// pluginOptions evaluates every attribute of a plugin block into native values.
func pluginOptions(body hcl.Body) (map[string]any, error) {
	if body == nil {
		return nil, nil
	}
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(attrs))
	for _, name := range names {
		val, diags := attrs[name].Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", name, err)
		}
		out[name] = native
	}
	return out, nil
}

// ctyToNative converts a cty.Value to the value TOML decoding would have
// produced: whole numbers become int64, other numbers float64.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number: %w", err)
		}
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, val := it.Element()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, err
			}
			slice = append(slice, nativeVal)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		goMap := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, val := it.Element()
			keyStr := key.AsString()
			nativeVal, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", keyStr, err)
			}
			goMap[keyStr] = nativeVal
		}
		return goMap, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
