package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"weld/internal/buildpipeline"
	"weld/internal/ctxlog"
	"weld/internal/driver"
	"weld/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [dir]",
	Short: "Rebuild a weld project whenever its sources change",
	Long: `Build once, then rebuild after every batch of file changes. A change that
arrives while a build runs cancels it and starts over. Files matched by the
project's .gitignore, the output directory and the cache are not watched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	addBuildFlags(watchCmd)
	watchCmd.Flags().Duration("debounce", watch.DefaultDebounce, "quiet period before a rebuild")
}

func runWatch(cmd *cobra.Command, args []string) error {
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
	// redraws would fight over the terminal between rebuilds
	session.tui = false
	session.watching = true
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}

	skip := []string{cfg.OutputDir()}
	if cfg.CacheDir != "" {
		skip = append(skip, cfg.CacheDir)
	}
	if cfg.HistoryPath != "" {
		skip = append(skip, cfg.HistoryPath, cfg.HistoryPath+"-journal")
	}
	w, err := watch.New(watch.Options{Root: cfg.Root, Skip: skip, Debounce: debounce})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	ctx := cmd.Context()
	log := ctxlog.FromContext(ctx)
	memory := driver.NewModuleCache(0)
	if !session.quiet {
		_, _ = fmt.Fprintf(session.stderr, "watching %s (ctrl-c to stop)\n", displayPath(cfg.Root))
	}
	return w.Run(ctx, func(bctx context.Context, changed []string) {
		if len(changed) > 0 && !session.quiet {
			_, _ = fmt.Fprintf(session.stderr, "\n%s  %s\n", time.Now().Format(time.TimeOnly), describeChanges(changed))
		}
		res, err := session.run(bctx, cfg, buildpipeline.RunOptions{Memory: memory})
		if err != nil {
			log.Debug("rebuild failed", "err", err)
		}
		if res != nil && res.Aborted && bctx.Err() != nil {
			log.Debug("rebuild superseded", "build", res.ID)
		}
	})
}

func describeChanges(changed []string) string {
	if len(changed) == 1 {
		return "changed " + displayPath(changed[0])
	}
	return fmt.Sprintf("changed %s and %d more", displayPath(changed[0]), len(changed)-1)
}
