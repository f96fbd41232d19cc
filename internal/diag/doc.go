// Package diag defines the diagnostic model shared by every build stage.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – tri-level enum (Info, Warning, Error).
//   - Code – stable string identifier (see codes.go); plugins may add their own.
//   - Message – short, actionable text.
//   - Stage – the pipeline stage or plugin that reported it.
//   - Module – identity of the module concerned, empty for run-level findings.
//   - Primary – optional source.Span inside the original module text.
//   - Notes – secondary spans/messages, e.g. the paths a resolver probed.
//
// Diagnostics are values; once reported they are never mutated.
//
// # Emitting diagnostics
//
// Stages report through a Reporter. ReportBuilder (NewReportBuilder,
// ReportError, ReportWarning) chains WithNote/InStage/ForModule before Emit.
// Collector is the run-wide sink: it is safe for concurrent use, applies the
// suppression Policy on arrival, keeps emission order and decides the final
// Status. Bag is its single-goroutine building block.
//
// Rendering lives in internal/diagfmt; this package only provides the short
// and golden one-line formats used by tests and log output.
package diag
