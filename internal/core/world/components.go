package world

import (
	"github.com/google/uuid"

	"github.com/worldmirror/worldmirror/internal/core/events/bus"
)

// EntityID is an opaque 128-bit random token. It carries no semantic meaning
// and is never recycled.
type EntityID uuid.UUID

func NewEntityID() EntityID {
	return EntityID(uuid.New())
}

func (id EntityID) String() string {
	return uuid.UUID(id).String()
}

// ComponentKind identifies a component type. At most one component of a given
// kind may be attached to an entity at a time.
type ComponentKind uint32

const (
	KindTransform ComponentKind = iota
	KindVisual
	KindMaterial
	KindPhysics
	KindHealth
)

func (k ComponentKind) String() string {
	switch k {
	case KindTransform:
		return "transform"
	case KindVisual:
		return "visual"
	case KindMaterial:
		return "material"
	case KindPhysics:
		return "physics"
	case KindHealth:
		return "health"
	default:
		return "unknown"
	}
}

// Change maps a component kind to the change category carried on bus events.
func (k ComponentKind) Change() bus.Change {
	switch k {
	case KindTransform:
		return bus.ChangeTransform
	case KindVisual:
		return bus.ChangeVisual
	case KindMaterial:
		return bus.ChangeMaterial
	case KindPhysics:
		return bus.ChangePhysics
	default:
		return bus.ChangeHealth
	}
}

// Component is a typed data record attached to an entity.
type Component interface {
	Kind() ComponentKind
}

// ShapeKind enumerates the primitive shapes the renderer can materialize.
type ShapeKind uint8

const (
	ShapeBox ShapeKind = iota
	ShapeSphere
	ShapeCylinder
	ShapeCone
	ShapeMesh
)

func (s ShapeKind) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	case ShapeCylinder:
		return "cylinder"
	case ShapeCone:
		return "cone"
	case ShapeMesh:
		return "mesh"
	default:
		return "unknown"
	}
}

// Transform is the spatial placement of an entity.
type Transform struct {
	Position Vector3
	Rotation Quaternion
	Scale    Vector3
}

func (Transform) Kind() ComponentKind { return KindTransform }

// Visual marks an entity as renderable. Entities without a Visual component
// are never mirrored to the renderer.
type Visual struct {
	Shape      ShapeKind
	Dimensions Vector3
	Hidden     bool
}

func (Visual) Kind() ComponentKind { return KindVisual }

// Material describes surface appearance parameters.
type Material struct {
	Color     RGBA
	Roughness float64
	Metallic  float64
	Texture   string
}

func (Material) Kind() ComponentKind { return KindMaterial }

// Physics holds motion state integrated by the physics system each tick.
type Physics struct {
	Velocity        Vector3
	AngularVelocity Vector3
	Static          bool
}

func (Physics) Kind() ComponentKind { return KindPhysics }

// Health is gameplay state. It has no visual effect of its own.
type Health struct {
	Current float64
	Max     float64
}

func (Health) Kind() ComponentKind { return KindHealth }
