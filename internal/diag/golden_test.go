package diag

import (
	"testing"

	"weld/internal/source"
)

func TestFormatGoldenDiagnostics(t *testing.T) {
	fs := source.NewFileSetWithBase("/workspace")

	userFile := fs.Add("/workspace/src/main.ts", []byte("a\nb\n"), 0)

	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     CircularDependency,
			Message:  "another",
		},
		{
			Severity: SevError,
			Code:     UnresolvedImport,
			Message:  "first line\nsecond",
			Module:   "/workspace/src/main.ts",
			Primary:  source.Span{File: userFile, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: userFile, Start: 2, End: 3}, Msg: "note line"},
			},
		},
		{
			Severity: SevWarning,
			Code:     CSSEmpty,
			Message:  "empty",
			Module:   "/workspace/src/empty.css",
		},
	}

	expected := "warning CIRCULAR_DEPENDENCY <build> another\n" +
		"warning CSS_EMPTY src/empty.css empty\n" +
		"error UNRESOLVED_IMPORT src/main.ts:1:1 first line second\n" +
		"note UNRESOLVED_IMPORT src/main.ts:2:1 note line"

	if got := FormatGoldenDiagnostics(diags, fs, true); got != expected {
		t.Fatalf("unexpected golden diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}
