package buildpipeline

import (
	"path/filepath"
	"time"

	"weld/internal/driver"
)

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

func emitStage(sink ProgressSink, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

var moduleStatus = map[driver.ModuleStatus]Status{
	driver.ModuleQueued:  StatusQueued,
	driver.ModuleWorking: StatusWorking,
	driver.ModuleDone:    StatusDone,
	driver.ModuleCached:  StatusCached,
	driver.ModuleFailed:  StatusError,
}

// moduleObserver turns builder events into graph-stage events with paths
// relative to root.
func moduleObserver(sink ProgressSink, root string) driver.ModuleObserver {
	if sink == nil {
		return nil
	}
	return func(ev driver.ModuleEvent) {
		sink.OnEvent(Event{
			File:    displayPath(root, ev.ID),
			Stage:   StageGraph,
			Status:  moduleStatus[ev.Status],
			Err:     ev.Err,
			Elapsed: ev.Elapsed,
		})
	}
}

func displayPath(root, id string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, id); err == nil && !filepath.IsAbs(rel) && rel != ".." &&
			(len(rel) < 3 || rel[:3] != ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(id)
}
