package banner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/internal/plugin"
)

func TestBannerOnEntriesOnly(t *testing.T) {
	p, err := New(plugin.Options{"text": "weld demo v1"}, plugin.Env{})
	require.NoError(t, err)
	chain, err := plugin.NewChain(plugin.Stage{Plugin: p})
	require.NoError(t, err)

	entry := plugin.NewModule("/p/main.js", 1, []byte("run();\n"), true)
	dep := plugin.NewModule("/p/dep.js", 2, []byte("x();\n"), false)
	require.NoError(t, chain.Apply(context.Background(), entry, nil, nil))
	require.NoError(t, chain.Apply(context.Background(), dep, nil, nil))

	assert.Equal(t, "/*! weld demo v1 */\nrun();\n", string(entry.Code))
	assert.Equal(t, "x();\n", string(dep.Code))

	in, ok := entry.Map.Lookup(uint32(len("/*! weld demo v1 */\n")))
	require.True(t, ok)
	assert.Equal(t, uint32(0), in)
}

func TestBannerRequiresText(t *testing.T) {
	_, err := New(plugin.Options{}, plugin.Env{})
	assert.Error(t, err)
}
