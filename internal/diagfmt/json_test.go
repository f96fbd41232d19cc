package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"weld/internal/diag"
	"weld/internal/source"
)

// TestJSONBasic checks locations, notes and truncation.
func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSetWithBase("/proj")
	fileID := fs.Add("/proj/src/main.ts", []byte("import a from \"./a\";\nimport b from \"./missing\";\n"), 0)

	items := []diag.Diagnostic{
		diag.NewError(diag.UnresolvedImport, source.Span{File: fileID, Start: 35, End: 46}, `cannot resolve "./missing"`).
			WithModule("/proj/src/main.ts").
			WithStage("resolve").
			WithNote(source.Span{}, "probed /proj/src/missing.ts"),
		diag.NewWarning(diag.CircularDependency, source.Span{}, "a -> b -> a"),
	}

	var buf bytes.Buffer
	opts := JSONOpts{IncludePositions: true, PathMode: PathModeRelative, IncludeNotes: true}
	if err := JSON(&buf, items, fs, opts); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if output.Count != 2 {
		t.Fatalf("count = %d, want 2", output.Count)
	}

	first := output.Diagnostics[0]
	if first.Severity != "ERROR" || first.Code != "UNRESOLVED_IMPORT" {
		t.Errorf("first = %s %s", first.Severity, first.Code)
	}
	if first.Location == nil || first.Location.File != "src/main.ts" || first.Location.StartLine != 2 || first.Location.StartCol != 15 {
		t.Errorf("location = %+v", first.Location)
	}
	if first.Module != "src/main.ts" || first.Stage != "resolve" {
		t.Errorf("module/stage = %q/%q", first.Module, first.Stage)
	}
	if len(first.Notes) != 1 || first.Notes[0].Location != nil {
		t.Errorf("notes = %+v", first.Notes)
	}

	second := output.Diagnostics[1]
	if second.Location != nil {
		t.Errorf("run-level diagnostic must have no location, got %+v", second.Location)
	}
}

func TestJSONMaxAndStatus(t *testing.T) {
	items := []diag.Diagnostic{
		diag.NewError(diag.TransformFailed, source.Span{}, "one"),
		diag.NewError(diag.TransformFailed, source.Span{}, "two"),
		diag.NewError(diag.TransformFailed, source.Span{}, "three"),
	}
	var buf bytes.Buffer
	if err := JSONWithStatus(&buf, diag.StatusFailed, items, nil, JSONOpts{Max: 2}); err != nil {
		t.Fatal(err)
	}
	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatal(err)
	}
	if output.Count != 2 || output.Status != "failed" {
		t.Fatalf("count=%d status=%q", output.Count, output.Status)
	}
}
