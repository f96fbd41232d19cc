package alias

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/plugin"
)

func TestLongestPrefixWins(t *testing.T) {
	p, err := New(plugin.Options{"prefixes": map[string]any{
		"@app/":    "./src/",
		"@app/ui/": "./src/components/",
	}}, plugin.Env{Root: "/proj"})
	require.NoError(t, err)
	r := p.(plugin.Resolver)

	var probed []string
	probe := func(base string) (string, bool) {
		probed = append(probed, base)
		return base + ".ts", true
	}

	res, err := r.Resolve(context.Background(), plugin.ResolveArgs{Specifier: "@app/ui/button", Probe: probe})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/proj", "src", "components", "button")+".ts", res.Path)

	res, err = r.Resolve(context.Background(), plugin.ResolveArgs{Specifier: "lodash", Probe: probe})
	require.NoError(t, err)
	assert.True(t, res.Declined())
	assert.Len(t, probed, 1)
}

func TestMissingTargetDeclines(t *testing.T) {
	p, err := New(plugin.Options{"prefixes": map[string]any{"~/": "/abs/"}}, plugin.Env{Root: "/proj"})
	require.NoError(t, err)
	res, err := p.(plugin.Resolver).Resolve(context.Background(), plugin.ResolveArgs{
		Specifier: "~/x",
		Probe:     func(string) (string, bool) { return "", false },
	})
	require.NoError(t, err)
	assert.True(t, res.Declined())
	assert.Equal(t, plugin.PhaseResolve, p.Phase())
}
