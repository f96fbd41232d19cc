package ui

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bp "weld/internal/buildpipeline"
)

func TestApplyEventDiscoversModules(t *testing.T) {
	m := NewProgressModel("weld build", nil).(*progressModel)

	m.applyEvent(bp.Event{Stage: bp.StageGraph, Status: bp.StatusWorking})
	m.applyEvent(bp.Event{File: "src/a.ts", Stage: bp.StageGraph, Status: bp.StatusQueued})
	m.applyEvent(bp.Event{File: "src/a.ts", Stage: bp.StageGraph, Status: bp.StatusWorking})
	m.applyEvent(bp.Event{File: "src/b.ts", Stage: bp.StageGraph, Status: bp.StatusCached})
	m.applyEvent(bp.Event{File: "src/a.ts", Stage: bp.StageGraph, Status: bp.StatusDone})
	// a repeated final status is not counted twice
	m.applyEvent(bp.Event{File: "src/a.ts", Stage: bp.StageGraph, Status: bp.StatusDone})

	require.Len(t, m.items, 2)
	assert.Equal(t, "done", m.items[0].status)
	assert.Equal(t, "cached", m.items[1].status)
	assert.Equal(t, 2, m.finished)
	assert.Equal(t, "transforming", m.stageLabel)

	view := m.View()
	assert.Contains(t, view, "weld build (transforming)")
	assert.Contains(t, view, "src/a.ts")
	assert.Contains(t, view, "2/2 modules")
}

func TestViewScrollsLongLists(t *testing.T) {
	m := NewProgressModel("build", nil).(*progressModel)
	for i := range maxRows + 3 {
		m.applyEvent(bp.Event{File: fmt.Sprintf("m%02d.js", i), Stage: bp.StageGraph, Status: bp.StatusQueued})
	}
	view := m.View()
	assert.Contains(t, view, "3 more")
	assert.NotContains(t, view, "m00.js")
	assert.Contains(t, view, fmt.Sprintf("m%02d.js", maxRows+2))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a-v...", truncate("a-very-long-path.js", 9))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "emit done", statusLabel(bp.StageEmit, bp.StatusDone))
	assert.Equal(t, "writing", statusLabel(bp.StageWrite, bp.StatusWorking))
	assert.Equal(t, "", statusLabel(bp.StageGraph, bp.Status("other")))
}
