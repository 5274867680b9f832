package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldmirror/worldmirror/internal/core/events/bus"
	"github.com/worldmirror/worldmirror/internal/core/world"
)

func newTestWorld() (*world.World, bus.Bus) {
	events := bus.New()
	return world.NewWorld(events), events
}

func TestSystem_IntegratesVelocity(t *testing.T) {
	w, _ := newTestWorld()
	id := w.CreateEntity()
	require.NoError(t, w.AddComponent(id, world.Transform{Position: world.Vector3{X: 1}}))
	require.NoError(t, w.AddComponent(id, world.Physics{Velocity: world.Vector3{X: 2, Y: -1}}))

	require.NoError(t, New().Update(w, 0.5))

	tr, _ := w.Transform(id)
	assert.Equal(t, world.Vector3{X: 2, Y: -0.5}, tr.Position)
}

func TestSystem_SkipsStaticAndResting(t *testing.T) {
	w, _ := newTestWorld()

	static := w.CreateEntity()
	require.NoError(t, w.AddComponent(static, world.Transform{Position: world.Vector3{X: 1}}))
	require.NoError(t, w.AddComponent(static, world.Physics{Velocity: world.Vector3{X: 9}, Static: true}))

	resting := w.CreateEntity()
	require.NoError(t, w.AddComponent(resting, world.Transform{Position: world.Vector3{Y: 3}}))
	require.NoError(t, w.AddComponent(resting, world.Physics{}))

	require.NoError(t, New().Update(w, 1))

	tr, _ := w.Transform(static)
	assert.Equal(t, world.Vector3{X: 1}, tr.Position)
	tr, _ = w.Transform(resting)
	assert.Equal(t, world.Vector3{Y: 3}, tr.Position)
}

func TestSystem_EmitsChangeEvents(t *testing.T) {
	w, events := newTestWorld()
	id := w.CreateEntity()
	require.NoError(t, w.AddComponent(id, world.Transform{}))
	require.NoError(t, w.AddComponent(id, world.Physics{Velocity: world.Vector3{Z: 1}}))

	var changes []bus.Change
	_, err := events.Subscribe(bus.ComponentChanged, func(e bus.Event) error {
		changes = append(changes, e.Change)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, New().Update(w, 1))

	assert.Equal(t, []bus.Change{bus.ChangeTransform}, changes)
}

func TestSystem_ZeroDeltaIsNoop(t *testing.T) {
	w, _ := newTestWorld()
	id := w.CreateEntity()
	require.NoError(t, w.AddComponent(id, world.Transform{}))
	require.NoError(t, w.AddComponent(id, world.Physics{Velocity: world.Vector3{X: 1}}))

	require.NoError(t, New().Update(w, 0))

	tr, _ := w.Transform(id)
	assert.Equal(t, world.Vector3{}, tr.Position)
}
