package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/diag"
	"weld/internal/plugin"
)

func TestBuiltinsRegistered(t *testing.T) {
	reg := NewRegistry()
	assert.Equal(t, []string{"alias", "banner", "esm", "minify", "replace", "styles", "svg"}, reg.Names())
	assert.Error(t, Register(reg), "double registration must fail")
}

func TestDefaultChainOrder(t *testing.T) {
	reg := NewRegistry()
	chain, err := reg.Instantiate([]plugin.Spec{
		{Name: "alias", Options: plugin.Options{"prefixes": map[string]any{"@/": "./src/"}}},
		{Name: "styles"},
		{Name: "svg"},
		{Name: "esm"},
		{Name: "minify"},
	}, plugin.Env{Root: "/p", Format: "esm"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alias", "styles", "svg", "esm", "minify"}, chain.Names())
}

func TestOptimizeBeforeTransformIsRejected(t *testing.T) {
	_, err := NewRegistry().Instantiate([]plugin.Spec{{Name: "minify"}, {Name: "esm"}}, plugin.Env{})
	var se *plugin.SetupError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, diag.InvalidPluginOrder, se.Code)
	assert.Equal(t, "esm", se.Plugin)
}
