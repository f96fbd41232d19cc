package diag

import (
	"fmt"
	"strings"
	"sync"
)

// Action is what a suppression policy does with a matching diagnostic.
type Action uint8

const (
	// ActionPass keeps the diagnostic at its original severity.
	ActionPass Action = iota
	// ActionIgnore drops the diagnostic entirely.
	ActionIgnore
	// ActionError promotes the diagnostic to error severity.
	ActionError
)

func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionError:
		return "error"
	default:
		return "pass"
	}
}

// ParseAction accepts "pass", "ignore", "error" and the long form "log-as-error".
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pass", "pass-through", "warn", "":
		return ActionPass, nil
	case "ignore", "off":
		return ActionIgnore, nil
	case "error", "log-as-error":
		return ActionError, nil
	}
	return ActionPass, fmt.Errorf("unknown warning action %q (want pass, ignore or error)", s)
}

// Policy maps codes to actions. Unmatched codes pass through.
type Policy map[Code]Action

// Apply returns the effective diagnostic and whether it should be kept.
func (p Policy) Apply(d Diagnostic) (Diagnostic, bool) {
	switch p[d.Code] {
	case ActionIgnore:
		return d, false
	case ActionError:
		d.Severity = SevError
	}
	return d, true
}

// Status is the outcome of a finalized run.
type Status uint8

const (
	StatusOK Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusFailed {
		return "failed"
	}
	return "ok"
}

// ExitCode maps the status onto a process exit code.
func (s Status) ExitCode() int {
	if s == StatusFailed {
		return 1
	}
	return 0
}

// CollectorOptions configures a Collector.
type CollectorOptions struct {
	Policy Policy
	// Max bounds the number of stored diagnostics; 0 means unbounded.
	// Errors past the limit still fail the run.
	Max int
	// Dedup drops repeated diagnostics.
	Dedup bool
}

// Collector is the thread-safe sink every stage reports into. It applies the
// suppression policy on arrival and keeps emission order.
type Collector struct {
	mu      sync.Mutex
	opts    CollectorOptions
	bag     *Bag
	seen    map[dedupKey]struct{}
	errors  int
	dropped int
}

func NewCollector(opts CollectorOptions) *Collector {
	c := &Collector{opts: opts, bag: NewBag(opts.Max)}
	if opts.Dedup {
		c.seen = make(map[dedupKey]struct{})
	}
	return c
}

// Record applies the policy and stores d.
func (c *Collector) Record(d Diagnostic) {
	d, keep := c.opts.Policy.Apply(d)
	if !keep {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen != nil {
		k := keyOf(d)
		if _, ok := c.seen[k]; ok {
			return
		}
		c.seen[k] = struct{}{}
	}
	if d.Severity >= SevError {
		c.errors++
	}
	if !c.bag.Add(d) {
		c.dropped++
	}
}

// Fail guarantees a failing status for a fault that stopped the run. When
// no error is on record yet, typically because the policy ignored the
// fault's own diagnostic, d is stored as an error regardless of policy.
func (c *Collector) Fail(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.errors > 0 {
		return
	}
	d.Severity = SevError
	c.errors++
	if !c.bag.Add(d) {
		c.dropped++
	}
}

// Report implements Reporter.
func (c *Collector) Report(d Diagnostic) {
	c.Record(d)
}

// HasErrors reports whether an effective error was recorded.
func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors > 0
}

// Dropped is the number of diagnostics discarded by the Max limit.
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Snapshot returns a copy of the diagnostics recorded so far.
func (c *Collector) Snapshot() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, c.bag.Len())
	copy(out, c.bag.Items())
	return out
}

// Finalize returns the run status and all kept diagnostics in emission order.
// It may be called more than once.
func (c *Collector) Finalize() (Status, []Diagnostic) {
	items := c.Snapshot()
	if c.HasErrors() {
		return StatusFailed, items
	}
	return StatusOK, items
}

// Counts returns the number of stored diagnostics per severity.
func Counts(items []Diagnostic) (errors, warnings, infos int) {
	for i := range items {
		switch items[i].Severity {
		case SevError:
			errors++
		case SevWarning:
			warnings++
		default:
			infos++
		}
	}
	return errors, warnings, infos
}
