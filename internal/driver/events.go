package driver

import "time"

// ModuleStatus is a module's progress through the builder.
type ModuleStatus int

const (
	ModuleQueued ModuleStatus = iota
	ModuleWorking
	ModuleDone
	ModuleCached
	ModuleFailed
)

func (s ModuleStatus) String() string {
	switch s {
	case ModuleQueued:
		return "queued"
	case ModuleWorking:
		return "working"
	case ModuleDone:
		return "done"
	case ModuleCached:
		return "cached"
	case ModuleFailed:
		return "failed"
	}
	return "unknown"
}

// ModuleEvent describes one status change.
type ModuleEvent struct {
	ID      string
	Status  ModuleStatus
	Err     error
	Elapsed time.Duration
}

// ModuleObserver receives events from many goroutines at once.
type ModuleObserver func(ModuleEvent)
