package physics

import (
	"github.com/worldmirror/worldmirror/internal/core/world"
)

// System integrates velocity into entity transforms once per tick. Writing
// the transform back through the world emits the component-changed event that
// feeds the synchronization engine.
type System struct{}

func New() *System {
	return &System{}
}

func (*System) Name() string { return "physics" }

func (*System) Update(w *world.World, dt float64) error {
	if dt <= 0 {
		return nil
	}
	for _, id := range w.Query(world.KindTransform, world.KindPhysics) {
		p, _ := w.Physics(id)
		if p.Static {
			continue
		}
		if p.Velocity == (world.Vector3{}) && p.AngularVelocity == (world.Vector3{}) {
			continue
		}
		t, _ := w.Transform(id)
		t.Position = t.Position.Add(p.Velocity.Scale(dt))
		if err := w.AddComponent(id, t); err != nil {
			return err
		}
	}
	return nil
}
