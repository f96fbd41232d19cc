package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"weld/internal/ctxlog"
)

// setupOutput applies --color, installs the logger every command reads
// through its context and starts any requested profilers.
func setupOutput(cmd *cobra.Command, _ []string) error {
	colorFlag, err := cmd.Flags().GetString("color")
	if err != nil {
		return err
	}
	colorMode, err := parseSwitch("color", colorFlag)
	if err != nil {
		return err
	}
	color.NoColor = !colorMode.enabled(os.Stdout)

	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return err
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid --log-format value %q (expected text|json)", format)
	}
	logger := ctxlog.New(level, format, cmd.ErrOrStderr())
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	return setupProfiling(cmd)
}

func useColor() bool { return !color.NoColor }
