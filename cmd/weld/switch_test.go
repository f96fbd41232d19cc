package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSwitch(t *testing.T) {
	tests := []struct {
		in   string
		want autoSwitch
	}{
		{"", switchAuto},
		{" Auto ", switchAuto},
		{"on", switchOn},
		{"always", switchOn},
		{"OFF", switchOff},
		{"never", switchOff},
	}
	for _, tt := range tests {
		got, err := parseSwitch("ui", tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseSwitch("color", "sometimes")
	require.EqualError(t, err, `invalid --color value "sometimes" (expected auto|on|off)`)
}

func TestSwitchEnabled(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	assert.True(t, switchOn.enabled(f))
	assert.False(t, switchOff.enabled(f))
	// a regular file is never a terminal
	assert.False(t, switchAuto.enabled(f))
}
