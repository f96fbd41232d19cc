package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"weld/internal/diag"
	"weld/internal/source"
)

// TestPathModes checks the path rendering modes.
func TestPathModes(t *testing.T) {
	fs := source.NewFileSetWithBase("/home/user/project")
	fileID := fs.Add("/home/user/project/src/test.ts", []byte("import x from \"./x\";\n"), 0)
	items := []diag.Diagnostic{
		diag.NewError(diag.UnresolvedImport, source.Span{File: fileID, Start: 14, End: 19}, `cannot resolve "./x"`),
	}

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/src/test.ts:1:15"},
		{"relative", PathModeRelative, "src/test.ts:1:15"},
		{"basename", PathModeBasename, "test.ts:1:15"},
		{"auto", PathModeAuto, "src/test.ts:1:15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, items, fs, PrettyOpts{PathMode: tt.mode})
			if !strings.Contains(buf.String(), tt.contains) {
				t.Fatalf("output %q does not contain %q", buf.String(), tt.contains)
			}
		})
	}
}

func TestPrettySnippetAndNotes(t *testing.T) {
	fs := source.NewFileSetWithBase("/p")
	fileID := fs.Add("/p/a.ts", []byte("const a = 1;\nimport x from \"./x\";\n"), 0)
	items := []diag.Diagnostic{
		diag.NewError(diag.UnresolvedImport, source.Span{File: fileID, Start: 27, End: 32}, `cannot resolve "./x"`).
			WithStage("resolve").
			WithNote(source.Span{}, "probed /p/x.ts"),
		diag.NewWarning(diag.BuildTimeout, source.Span{}, "build exceeded 1s"),
	}

	var buf bytes.Buffer
	Pretty(&buf, items, fs, PrettyOpts{PathMode: PathModeRelative, ShowSource: true, ShowNotes: true})
	out := buf.String()

	want := []string{
		"a.ts:2:15: ERROR UNRESOLVED_IMPORT: cannot resolve \"./x\" [resolve]",
		"   2 | import x from \"./x\";",
		"     |               ^~~~~",
		"  note: probed /p/x.ts",
		"weld: WARNING BUILD_TIMEOUT: build exceeded 1s",
	}
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("missing %q in:\n%s", w, out)
		}
	}
}
