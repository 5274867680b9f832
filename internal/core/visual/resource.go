package visual

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/worldmirror/worldmirror/internal/core/world"
)

// ResourceKey is the canonical identity of a visual resource. Two entities
// with identical keys always share the same cached resource instance.
type ResourceKey uint64

// ResourceDescriptor is the semantic description a resource is built from:
// shape kind, dimensions and material parameters. Descriptors with equal
// canonical forms produce equal keys.
type ResourceDescriptor struct {
	Shape      world.ShapeKind
	Dimensions world.Vector3
	Color      world.RGBA
	Roughness  float64
	Metallic   float64
	Texture    string
}

// Canonical renders the descriptor as a stable string. Float fields are
// fixed-precision so equal descriptors always canonicalize identically.
func (d ResourceDescriptor) Canonical() string {
	return fmt.Sprintf("%s|%.4f,%.4f,%.4f|%.4f,%.4f,%.4f,%.4f|%.4f|%.4f|%s",
		d.Shape,
		d.Dimensions.X, d.Dimensions.Y, d.Dimensions.Z,
		d.Color.R, d.Color.G, d.Color.B, d.Color.A,
		d.Roughness, d.Metallic, d.Texture)
}

func (d ResourceDescriptor) Key() ResourceKey {
	return ResourceKey(xxhash.Sum64String(d.Canonical()))
}

// DescriptorFrom assembles a descriptor from an entity's visual and material
// components. A missing material falls back to the zero material.
func DescriptorFrom(v world.Visual, m world.Material) ResourceDescriptor {
	return ResourceDescriptor{
		Shape:      v.Shape,
		Dimensions: v.Dimensions,
		Color:      m.Color,
		Roughness:  m.Roughness,
		Metallic:   m.Metallic,
		Texture:    m.Texture,
	}
}

// Resource is a constructed visual resource. Instances are immutable once
// built and shared across every entity with the same key.
type Resource struct {
	Key        ResourceKey
	Descriptor ResourceDescriptor

	// Payload is whatever the factory produced for the rendering backend.
	Payload any
}

// ResourceFactory builds a resource from its descriptor. Construction must be
// deterministic for a given descriptor so cached sharing is safe.
type ResourceFactory interface {
	Build(desc ResourceDescriptor) (*Resource, error)
}

// DescriptorFactory is the trivial factory: the resource carries only its
// descriptor. Backends that synthesize geometry replace it.
type DescriptorFactory struct{}

func (DescriptorFactory) Build(desc ResourceDescriptor) (*Resource, error) {
	return &Resource{Key: desc.Key(), Descriptor: desc}, nil
}

// CacheStats holds cache counters.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Builds uint64
}

// Cache memoizes constructed resources by key. Reads are shared; each key is
// written at most once until Clear. Entries are never evicted implicitly.
type Cache struct {
	mu      sync.RWMutex
	factory ResourceFactory
	entries map[ResourceKey]*Resource
	stats   CacheStats
}

func NewCache(factory ResourceFactory) *Cache {
	return &Cache{
		factory: factory,
		entries: make(map[ResourceKey]*Resource),
	}
}

// Get returns the cached resource for the descriptor, constructing and
// storing it on first use.
func (c *Cache) Get(desc ResourceDescriptor) (*Resource, error) {
	key := desc.Key()

	c.mu.RLock()
	res, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.stats.Hits++
		c.mu.Unlock()
		return res, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if res, ok := c.entries[key]; ok {
		c.stats.Hits++
		return res, nil
	}
	c.stats.Misses++
	res, err := c.factory.Build(desc)
	if err != nil {
		return nil, err
	}
	c.stats.Builds++
	c.entries[key] = res
	return res, nil
}

// Clear drops every entry. Entities still holding a freed resource re-request
// it on their next visual update.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[ResourceKey]*Resource)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
