package diag

import (
	"weld/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	// Stage names the pipeline stage or plugin that produced the diagnostic.
	Stage string
	// Module is the identity of the module the diagnostic concerns, if any.
	Module  string
	Primary source.Span
	Notes   []Note
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithStage(stage string) Diagnostic {
	d.Stage = stage
	return d
}

func (d Diagnostic) WithModule(id string) Diagnostic {
	d.Module = id
	return d
}
