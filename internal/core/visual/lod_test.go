package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldmirror/worldmirror/internal/core/observability/log"
	"github.com/worldmirror/worldmirror/internal/core/world"
)

func testLOD(t *testing.T, r RendererPort) *LODManager {
	t.Helper()
	m, err := NewLODManager(DefaultThresholds(), r, log.NewNop())
	require.NoError(t, err)
	return m
}

func TestLOD_ThresholdTable(t *testing.T) {
	m := testLOD(t, NewNopRenderer())

	tests := []struct {
		distance float64
		want     Level
	}{
		{0, LevelHigh},
		{10, LevelHigh},
		{50, LevelHigh},
		{51, LevelMedium},
		{100, LevelMedium},
		{150, LevelLow},
		{200, LevelLow},
		{350, LevelMinimal},
		{500, LevelMinimal},
		{600, LevelCulled},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.ComputeLevel(tt.distance), "distance %.0f", tt.distance)
	}
}

func TestLOD_MonotonicInDistance(t *testing.T) {
	m := testLOD(t, NewNopRenderer())

	prev := m.ComputeLevel(0)
	for d := 1.0; d < 1000; d += 1.0 {
		level := m.ComputeLevel(d)
		assert.GreaterOrEqual(t, level, prev, "detail must never increase with distance (d=%.0f)", d)
		prev = level
	}
}

func TestLOD_InvalidThresholds(t *testing.T) {
	bad := []Thresholds{
		{High: 0, Medium: 100, Low: 200, Cull: 500},
		{High: 100, Medium: 50, Low: 200, Cull: 500},
		{High: 50, Medium: 100, Low: 500, Cull: 200},
		{High: 50, Medium: 50, Low: 200, Cull: 500},
	}
	for _, th := range bad {
		_, err := NewLODManager(th, NewNopRenderer(), log.NewNop())
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	}
}

func TestLOD_CulledDisablesVisual(t *testing.T) {
	r := newFakeRenderer()
	m := testLOD(t, r)
	id := world.NewEntityID()

	level, err := m.Update(id, 7, world.Vector3{X: 10})
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, level)

	level, err = m.Update(id, 7, world.Vector3{X: 600})
	require.NoError(t, err)
	assert.Equal(t, LevelCulled, level)
	assert.False(t, r.enabled[7])
	assert.Zero(t, r.destroyVisualCalls)

	// Coming back in range re-enables without a rebuild.
	level, err = m.Update(id, 7, world.Vector3{X: 10})
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, level)
	assert.True(t, r.enabled[7])
	assert.Zero(t, r.createVisualCalls)
}

func TestLOD_NoRedundantApply(t *testing.T) {
	r := newFakeRenderer()
	m := testLOD(t, r)
	id := world.NewEntityID()

	for i := 0; i < 5; i++ {
		_, err := m.Update(id, 7, world.Vector3{X: 600})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, r.setEnabledCalls)
}

func TestLOD_DisableResetsToHigh(t *testing.T) {
	r := newFakeRenderer()
	m := testLOD(t, r)
	id := world.NewEntityID()

	_, err := m.Update(id, 7, world.Vector3{X: 600})
	require.NoError(t, err)
	assert.False(t, r.enabled[7])

	m.SetEnabled(false)

	level, ok := m.LevelOf(id)
	require.True(t, ok)
	assert.Equal(t, LevelHigh, level)
	assert.True(t, r.enabled[7])

	// While disabled, every entity reports full detail.
	level, err = m.Update(id, 7, world.Vector3{X: 600})
	require.NoError(t, err)
	assert.Equal(t, LevelHigh, level)
}
