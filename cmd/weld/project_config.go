package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"weld/internal/config"
	"weld/internal/diag"
	"weld/internal/diagfmt"
)

var errNoConfig = errors.New("no weld.toml or weld.hcl found\nrun `weld init` or name an entry explicitly, e.g.:\n  weld build --entry src/index.ts")

// loadProjectConfig resolves the configuration for a command: --config
// wins, then a file found by walking up from dir, then a config built
// from flags alone when they name at least one entry.
func loadProjectConfig(cmd *cobra.Command, dir string, o config.Overrides) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		return config.Load(path, o)
	}
	if dir == "" {
		dir = "."
	}
	found, ok, err := config.Find(dir)
	if err != nil {
		return nil, err
	}
	if ok {
		return config.Load(found, o)
	}
	if len(o.Entries) == 0 {
		return nil, errNoConfig
	}
	return config.FromOverrides(dir, o)
}

// reportConfigError prints a configuration failure as a diagnostic and
// turns it into an exit status; other errors pass through.
func reportConfigError(cmd *cobra.Command, err error) error {
	var cerr *config.Error
	if !errors.As(err, &cerr) {
		return err
	}
	diagfmt.Pretty(cmd.ErrOrStderr(), []diag.Diagnostic{cerr.Diagnostic()}, nil, diagfmt.PrettyOpts{Color: useColor()})
	return exitError{code: 1}
}

// displayPath shortens path relative to the working directory.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(wd, path); err == nil && !filepath.IsAbs(rel) && len(rel) < len(path) {
		return rel
	}
	return path
}
