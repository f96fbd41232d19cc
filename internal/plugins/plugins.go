// Package plugins wires the built-in plugins into a registry.
package plugins

import (
	"weld/internal/plugin"
	"weld/internal/plugins/alias"
	"weld/internal/plugins/banner"
	"weld/internal/plugins/esm"
	"weld/internal/plugins/minify"
	"weld/internal/plugins/replace"
	"weld/internal/plugins/styles"
	"weld/internal/plugins/svg"
)

// Register adds every built-in plugin to reg.
func Register(reg *plugin.Registry) error {
	builtins := []struct {
		name string
		f    plugin.Factory
	}{
		{alias.Name, alias.New},
		{styles.Name, styles.New},
		{svg.Name, svg.New},
		{esm.Name, esm.New},
		{replace.Name, replace.New},
		{minify.Name, minify.New},
		{banner.Name, banner.New},
	}
	for _, b := range builtins {
		if err := reg.Register(b.name, b.f); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-ins.
func NewRegistry() *plugin.Registry {
	reg := plugin.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}
