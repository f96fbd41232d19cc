package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weld/internal/config"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [dir]",
	Short: "Remove build outputs and the transform cache",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("cache-only", false, "keep outputs, remove only the transform cache")
}

func runClean(cmd *cobra.Command, args []string) error {
	cacheOnly, err := cmd.Flags().GetBool("cache-only")
	if err != nil {
		return err
	}
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	cfg, err := loadProjectConfig(cmd, dir, config.Overrides{})
	if err != nil {
		return reportConfigError(cmd, err)
	}

	var targets []string
	if cfg.CacheDir != "" {
		targets = append(targets, cfg.CacheDir)
	}
	if !cacheOnly {
		out := cfg.OutputDir()
		// never remove the project itself when bundles land in the root
		if out != cfg.Root {
			targets = append(targets, out)
		}
	}

	removed := 0
	for _, t := range targets {
		info, err := os.Stat(t)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to stat %q: %w", t, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%q is not a directory", t)
		}
		if err := os.RemoveAll(t); err != nil {
			return fmt.Errorf("failed to remove %q: %w", t, err)
		}
		removed++
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", displayPath(t))
	}
	if removed == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing to clean")
	}
	return nil
}
