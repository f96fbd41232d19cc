package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"weld/internal/buildpipeline"
	"weld/internal/diag"
	"weld/internal/diagfmt"
)

type diagOutput struct {
	format   string
	pathMode diagfmt.PathMode
	max      int
}

func readDiagOutput(cmd *cobra.Command) (diagOutput, error) {
	format, err := cmd.Flags().GetString("diagnostics-format")
	if err != nil {
		return diagOutput{}, err
	}
	switch format {
	case "pretty", "short", "json":
	default:
		return diagOutput{}, fmt.Errorf("invalid --diagnostics-format value %q (expected pretty|short|json)", format)
	}
	mode, err := cmd.Flags().GetString("path-mode")
	if err != nil {
		return diagOutput{}, err
	}
	maxDiagnostics, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return diagOutput{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return diagOutput{format: format, pathMode: diagfmt.ParsePathMode(mode), max: maxDiagnostics}, nil
}

// writeDiagnostics renders res's diagnostics. JSON output is always
// written so tooling sees the status even for clean builds.
func (d diagOutput) writeDiagnostics(w io.Writer, res *buildpipeline.BuildResult) error {
	if d.format == "json" {
		return diagfmt.JSONWithStatus(w, res.Status, res.Diagnostics, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         d.pathMode,
			Max:              d.max,
			IncludeNotes:     true,
		})
	}
	if len(res.Diagnostics) == 0 {
		return nil
	}
	if d.format == "short" {
		items := res.Diagnostics
		if d.max > 0 && d.max < len(items) {
			items = items[:d.max]
		}
		_, err := io.WriteString(w, diag.FormatShortDiagnostics(items, res.FileSet, false)+"\n")
		return err
	}
	diagfmt.Pretty(w, res.Diagnostics, res.FileSet, diagfmt.PrettyOpts{
		Color:      useColor(),
		PathMode:   d.pathMode,
		ShowNotes:  true,
		ShowSource: true,
		Max:        d.max,
	})
	return nil
}
