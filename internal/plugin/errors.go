package plugin

import (
	"fmt"

	"weld/internal/diag"
	"weld/internal/source"
)

// TransformError reports a stage that could not process a module.
type TransformError struct {
	Stage  string
	Module string
	Span   source.Span
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: stage %q failed: %v", e.Module, e.Stage, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Diagnostic converts the error into an error diagnostic.
func (e *TransformError) Diagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Severity: diag.SevError,
		Code:     diag.TransformFailed,
		Message:  fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err),
		Stage:    e.Stage,
		Module:   e.Module,
		Primary:  e.Span,
	}
}

// SpanError lets a plugin attach a location to the error it returns.
type SpanError struct {
	Span source.Span
	Err  error
}

func (e *SpanError) Error() string { return e.Err.Error() }
func (e *SpanError) Unwrap() error { return e.Err }

// SetupError is a chain configuration problem: an unknown plugin, bad
// options, or stages out of phase order.
type SetupError struct {
	Code   diag.Code
	Index  int
	Plugin string
	Err    error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("plugins[%d] %q: %v", e.Index, e.Plugin, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
