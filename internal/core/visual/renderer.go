package visual

import (
	"github.com/worldmirror/worldmirror/internal/core/world"
)

// VisualHandle identifies a visual object owned by the rendering backend. The
// value is opaque to the core; zero is never a valid handle.
type VisualHandle uint64

// AnchorHandle identifies the spatial placement of a visual object in the
// rendering backend.
type AnchorHandle uint64

// RendererPort is the boundary contract of the external rendering backend.
// All calls are synchronous from the engine's perspective and may fail; the
// engine isolates failures per entity and never retries within the same tick.
type RendererPort interface {
	CreateVisual(res *Resource, transform world.Transform) (VisualHandle, error)
	UpdateVisual(handle VisualHandle, transform world.Transform) error
	SetVisualEnabled(handle VisualHandle, enabled bool) error
	DestroyVisual(handle VisualHandle) error

	CreateAnchor(position world.Vector3) (AnchorHandle, error)
	DestroyAnchor(handle AnchorHandle) error
}

// NopRenderer is a stand-in backend that issues sequential handles and
// succeeds on every call. It backs the demo binary and tests that do not care
// about renderer interaction.
type NopRenderer struct {
	nextVisual VisualHandle
	nextAnchor AnchorHandle
}

var _ RendererPort = (*NopRenderer)(nil)

func NewNopRenderer() *NopRenderer {
	return &NopRenderer{}
}

func (r *NopRenderer) CreateVisual(*Resource, world.Transform) (VisualHandle, error) {
	r.nextVisual++
	return r.nextVisual, nil
}

func (r *NopRenderer) UpdateVisual(VisualHandle, world.Transform) error { return nil }

func (r *NopRenderer) SetVisualEnabled(VisualHandle, bool) error { return nil }

func (r *NopRenderer) DestroyVisual(VisualHandle) error { return nil }

func (r *NopRenderer) CreateAnchor(world.Vector3) (AnchorHandle, error) {
	r.nextAnchor++
	return r.nextAnchor, nil
}

func (r *NopRenderer) DestroyAnchor(AnchorHandle) error { return nil }
