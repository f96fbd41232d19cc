package main

import (
	"github.com/spf13/cobra"

	"weld/internal/config"
)

// addBuildFlags registers the flags shared by build and watch.
func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceP("entry", "e", nil, "entry module (repeatable, replaces configured entries)")
	f.String("out-dir", "", "write one bundle per entry into this directory")
	f.String("out-file", "", "write a single bundle to this file")
	f.String("format", "", "bundle format (esm|iife)")
	f.Bool("sourcemap", true, "write source maps")
	f.Bool("minify", false, "append the minify plugin")
	f.Bool("strict", false, "abort on the first module error")
	f.Int("jobs", 0, "parallel transform jobs (0 = GOMAXPROCS)")
	f.String("timeout", "", "abort the build after this duration, e.g. 90s")
	f.Bool("no-cache", false, "skip the on-disk transform cache")
	f.String("ui", "auto", "progress UI (auto|on|off)")
	f.String("diagnostics-format", "pretty", "diagnostics output format (pretty|short|json)")
	f.String("path-mode", "auto", "diagnostic path display (auto|absolute|relative|basename)")
}

// readOverrides turns explicitly set flags into config overrides; unset
// flags leave the file's values alone.
func readOverrides(cmd *cobra.Command) (config.Overrides, error) {
	f := cmd.Flags()
	var (
		o   config.Overrides
		err error
	)
	if o.Entries, err = f.GetStringSlice("entry"); err != nil {
		return o, err
	}
	if o.OutDir, err = f.GetString("out-dir"); err != nil {
		return o, err
	}
	if o.OutFile, err = f.GetString("out-file"); err != nil {
		return o, err
	}
	if o.Format, err = f.GetString("format"); err != nil {
		return o, err
	}
	if o.Jobs, err = f.GetInt("jobs"); err != nil {
		return o, err
	}
	if o.Timeout, err = f.GetString("timeout"); err != nil {
		return o, err
	}
	if o.NoCache, err = f.GetBool("no-cache"); err != nil {
		return o, err
	}
	for name, dst := range map[string]**bool{
		"sourcemap": &o.SourceMap,
		"minify":    &o.Minify,
		"strict":    &o.Strict,
	} {
		if !f.Changed(name) {
			continue
		}
		v, err := f.GetBool(name)
		if err != nil {
			return o, err
		}
		*dst = &v
	}
	return o, nil
}
