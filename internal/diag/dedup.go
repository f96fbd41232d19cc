package diag

import "weld/internal/source"

// dedupKey identifies a diagnostic by code, severity, module, primary span
// and message.
type dedupKey struct {
	code   Code
	sev    Severity
	module string
	file   source.FileID
	start  uint32
	end    uint32
	msg    string
}

func keyOf(d Diagnostic) dedupKey {
	return dedupKey{
		code:   d.Code,
		sev:    d.Severity,
		module: d.Module,
		file:   d.Primary.File,
		start:  d.Primary.Start,
		end:    d.Primary.End,
		msg:    d.Message,
	}
}
