package bridge

import (
	"github.com/worldmirror/worldmirror/internal/core/world"
)

// MaterialDescriptor is the wire form of surface appearance parameters.
type MaterialDescriptor struct {
	Color     world.RGBA `json:"color"`
	Roughness float64    `json:"roughness"`
	Metallic  float64    `json:"metallic"`
	Texture   string     `json:"texture,omitempty"`
}

// ObjectUpdate is one decoded object-update record from the remote world
// server. ExternalID is the server's identifier; the bridge owns the table
// mapping it to an EntityID.
type ObjectUpdate struct {
	ExternalID uint64              `json:"external_id"`
	Remove     bool                `json:"remove,omitempty"`
	Position   world.Vector3       `json:"position"`
	Rotation   world.Quaternion    `json:"rotation"`
	Scale      world.Vector3       `json:"scale"`
	Shape      string              `json:"shape,omitempty"`
	Dimensions world.Vector3       `json:"dimensions"`
	Material   *MaterialDescriptor `json:"material,omitempty"`
	Velocity   *world.Vector3      `json:"velocity,omitempty"`
}

// Reset clears the record for pool reuse.
func (u *ObjectUpdate) Reset() {
	*u = ObjectUpdate{}
}

// ShapeKind maps the wire shape name onto the component enum, defaulting to
// a box for unknown names so malformed updates still materialize.
func (u *ObjectUpdate) ShapeKind() world.ShapeKind {
	switch u.Shape {
	case "sphere":
		return world.ShapeSphere
	case "cylinder":
		return world.ShapeCylinder
	case "cone":
		return world.ShapeCone
	case "mesh":
		return world.ShapeMesh
	default:
		return world.ShapeBox
	}
}
