package config

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Template renders a starter weld.toml for entry. The plugin list mirrors a
// typical TypeScript app: styles and SVGs inlined, imports flattened.
func Template(entry string) ([]byte, error) {
	sourceMap := true
	raw := rawConfig{
		Entries: []string{entry},
		Output: rawOutput{
			Dir:       DefaultOutDir,
			Format:    string(FormatESM),
			SourceMap: &sourceMap,
		},
		Resolve: rawResolve{
			Extensions: []string{".ts", ".svg", ".scss", ".js"},
		},
		Plugins: []rawPlugin{
			{Name: "styles"},
			{Name: "svg"},
			{Name: "esm"},
		},
		Warnings: map[string]string{
			"THIS_IS_UNDEFINED": "ignore",
		},
		Minify:  true,
		Timeout: "2m",
		History: rawHistory{Path: DefaultHistoryPath},
	}

	var buf bytes.Buffer
	buf.WriteString("# weld build configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(raw); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return buf.Bytes(), nil
}
