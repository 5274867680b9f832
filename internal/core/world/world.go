package world

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/worldmirror/worldmirror/internal/core/events/bus"
)

// ErrUnknownEntity reports an operation that referenced an entity id the world
// does not hold.
var ErrUnknownEntity = errors.New("world: unknown entity")

// World owns every entity and its components. Mutation is single-writer: only
// the frame goroutine may call the mutating methods, so the store itself holds
// no lock. Background producers hand completed data to the frame goroutine and
// never touch the world directly.
//
// Every successful mutation publishes the matching lifecycle event on the bus
// synchronously, before the call returns, so subscribers observe changes in
// the exact order they occurred.
type World struct {
	events bus.Bus

	entities map[EntityID]map[ComponentKind]Component

	// order preserves entity creation order so query results are
	// deterministic within a world generation.
	order []EntityID
}

// NewWorld creates an empty world publishing to the given bus.
func NewWorld(events bus.Bus) *World {
	return &World{
		events:   events,
		entities: make(map[EntityID]map[ComponentKind]Component),
	}
}

// CreateEntity allocates a fresh entity with an empty component set.
func (w *World) CreateEntity() EntityID {
	id := NewEntityID()
	w.entities[id] = make(map[ComponentKind]Component)
	w.order = append(w.order, id)
	w.publish(bus.Event{Kind: bus.EntityCreated, Entity: uuid.UUID(id)})
	return id
}

// RemoveEntity removes the entity and all of its components atomically.
// Removing an unknown entity is a no-op.
func (w *World) RemoveEntity(id EntityID) {
	if _, ok := w.entities[id]; !ok {
		return
	}
	delete(w.entities, id)
	for i, eid := range w.order {
		if eid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.publish(bus.Event{Kind: bus.EntityDestroyed, Entity: uuid.UUID(id)})
}

// AddComponent inserts or replaces the component for its kind. Adding a
// component twice replaces the previous instance, it never duplicates.
func (w *World) AddComponent(id EntityID, c Component) error {
	comps, ok := w.entities[id]
	if !ok {
		return ErrUnknownEntity
	}
	comps[c.Kind()] = c
	w.publish(bus.Event{Kind: bus.ComponentChanged, Entity: uuid.UUID(id), Change: c.Kind().Change()})
	return nil
}

// GetComponent returns the component of the given kind, or false when absent.
func (w *World) GetComponent(id EntityID, kind ComponentKind) (Component, bool) {
	comps, ok := w.entities[id]
	if !ok {
		return nil, false
	}
	c, ok := comps[kind]
	return c, ok
}

func (w *World) HasComponent(id EntityID, kind ComponentKind) bool {
	_, ok := w.GetComponent(id, kind)
	return ok
}

// RemoveComponent detaches the component of the given kind. Removing an absent
// component is a no-op.
func (w *World) RemoveComponent(id EntityID, kind ComponentKind) {
	comps, ok := w.entities[id]
	if !ok {
		return
	}
	if _, ok := comps[kind]; !ok {
		return
	}
	delete(comps, kind)
	w.publish(bus.Event{Kind: bus.ComponentChanged, Entity: uuid.UUID(id), Change: kind.Change()})
}

// Query returns every entity whose component set is a superset of kinds.
// Results follow entity creation order.
func (w *World) Query(kinds ...ComponentKind) []EntityID {
	var out []EntityID
	for _, id := range w.order {
		comps := w.entities[id]
		match := true
		for _, k := range kinds {
			if _, ok := comps[k]; !ok {
				match = false
				break
			}
		}
		if match {
			out = append(out, id)
		}
	}
	return out
}

// Exists reports whether the entity is live.
func (w *World) Exists(id EntityID) bool {
	_, ok := w.entities[id]
	return ok
}

func (w *World) EntityCount() int {
	return len(w.entities)
}

// Typed accessors used on the hot paths.

func (w *World) Transform(id EntityID) (Transform, bool) {
	c, ok := w.GetComponent(id, KindTransform)
	if !ok {
		return Transform{}, false
	}
	return c.(Transform), true
}

func (w *World) Visual(id EntityID) (Visual, bool) {
	c, ok := w.GetComponent(id, KindVisual)
	if !ok {
		return Visual{}, false
	}
	return c.(Visual), true
}

func (w *World) Material(id EntityID) (Material, bool) {
	c, ok := w.GetComponent(id, KindMaterial)
	if !ok {
		return Material{}, false
	}
	return c.(Material), true
}

func (w *World) Physics(id EntityID) (Physics, bool) {
	c, ok := w.GetComponent(id, KindPhysics)
	if !ok {
		return Physics{}, false
	}
	return c.(Physics), true
}

// publish absorbs handler errors: a failing subscriber never halts a world
// mutation.
func (w *World) publish(ev bus.Event) {
	ev.Timestamp = time.Now()
	_ = w.events.Publish(ev)
}
