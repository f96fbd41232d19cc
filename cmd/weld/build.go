package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"weld/internal/buildpipeline"
	"weld/internal/config"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [dir]",
	Short: "Bundle a weld project",
	Long: `Bundle a weld project. The configuration is read from weld.toml or weld.hcl,
found by walking up from [dir] (default: the working directory). Flags override
the file; --entry alone is enough to build without one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	addBuildFlags(buildCmd)
	buildCmd.Flags().Bool("dry-run", false, "build in memory without writing outputs")
	buildCmd.Flags().Int("top", 0, "list the N largest modules of each output")
}

func runBuild(cmd *cobra.Command, args []string) error {
	overrides, err := readOverrides(cmd)
	if err != nil {
		return err
	}
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	cfg, err := loadProjectConfig(cmd, dir, overrides)
	if err != nil {
		return reportConfigError(cmd, err)
	}
	session, err := newBuildSession(cmd)
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	res, err := session.run(cmd.Context(), cfg, buildpipeline.RunOptions{DryRun: dryRun})
	if res == nil {
		return err
	}
	if code := res.ExitCode(); code != 0 {
		return exitError{code: code}
	}
	return nil
}

// buildSession holds the output settings shared by build and watch.
type buildSession struct {
	title    string
	tui      bool
	quiet    bool
	timings  bool
	top      int
	// watching drops the report of builds a newer change cancelled
	watching bool
	diag     diagOutput
	stdout   io.Writer
	stderr   io.Writer
}

func newBuildSession(cmd *cobra.Command) (*buildSession, error) {
	s := &buildSession{
		title:  "weld " + cmd.Name(),
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}
	var err error
	if s.diag, err = readDiagOutput(cmd); err != nil {
		return nil, err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return nil, err
	}
	mode, err := parseSwitch("ui", uiValue)
	if err != nil {
		return nil, err
	}
	if s.quiet, err = cmd.Flags().GetBool("quiet"); err != nil {
		return nil, err
	}
	if s.timings, err = cmd.Flags().GetBool("timings"); err != nil {
		return nil, err
	}
	if cmd.Flags().Lookup("top") != nil {
		if s.top, err = cmd.Flags().GetInt("top"); err != nil {
			return nil, err
		}
	}
	// the progress UI owns stdout; JSON diagnostics need it clean
	s.tui = !s.quiet && s.diag.format != "json" && mode.enabled(os.Stdout)
	return s, nil
}

// run executes one build and prints its diagnostics, size summary and
// timings. The result is nil only when the build could not start.
func (s *buildSession) run(ctx context.Context, cfg *config.Config, opts buildpipeline.RunOptions) (*buildpipeline.BuildResult, error) {
	var (
		res *buildpipeline.BuildResult
		err error
	)
	if s.tui {
		res, err = runBuildWithUI(ctx, s.title, cfg, opts)
	} else {
		res, err = buildpipeline.Run(ctx, cfg, opts)
	}
	if res == nil {
		return nil, err
	}
	if s.watching && res.Aborted && ctx.Err() != nil {
		return res, err
	}

	diagOut := s.stderr
	report := s.stdout
	if s.diag.format == "json" {
		diagOut, report = s.stdout, s.stderr
	}
	if werr := s.diag.writeDiagnostics(diagOut, res); werr != nil {
		return res, werr
	}

	if !s.quiet && !res.Aborted && len(res.Stats.Outputs) > 0 {
		prev := compareWithHistory(ctx, cfg, res, !opts.DryRun)
		_, _ = fmt.Fprint(report, renderSummary(res, prev))
		_, _ = fmt.Fprint(report, renderTopModules(res.Stats, s.top))
	}
	if s.timings {
		printStageTimings(s.stderr, res)
	}
	// every fatal fault is already a diagnostic in res
	return res, err
}
