package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"weld/internal/buildpipeline"
	"weld/internal/config"
	"weld/internal/ui"
)

type buildOutcome struct {
	result *buildpipeline.BuildResult
	err    error
}

// runBuildWithUI runs the build in the background and renders its progress
// events until the event channel closes.
func runBuildWithUI(ctx context.Context, title string, cfg *config.Config, opts buildpipeline.RunOptions) (*buildpipeline.BuildResult, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		opts.Progress = buildpipeline.ChannelSink{Ch: events}
		res, err := buildpipeline.Run(ctx, cfg, opts)
		outcomeCh <- buildOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// the program may stop early; keep the build from blocking on a full channel
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil && ctx.Err() == nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
