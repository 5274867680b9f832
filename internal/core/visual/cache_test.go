package visual

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldmirror/worldmirror/internal/core/world"
)

type countingFactory struct {
	builds int
	fail   error
}

func (f *countingFactory) Build(desc ResourceDescriptor) (*Resource, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.builds++
	return &Resource{Key: desc.Key(), Descriptor: desc}, nil
}

func boxDesc(size float64) ResourceDescriptor {
	return ResourceDescriptor{
		Shape:      world.ShapeBox,
		Dimensions: world.Vector3{X: size, Y: size, Z: size},
		Color:      world.RGBA{R: 1, A: 1},
	}
}

func TestCache_IdenticalKeysShareInstance(t *testing.T) {
	f := &countingFactory{}
	c := NewCache(f)

	first, err := c.Get(boxDesc(1))
	require.NoError(t, err)
	second, err := c.Get(boxDesc(1))
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, f.builds)

	other, err := c.Get(boxDesc(2))
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, f.builds)
}

func TestCache_FactoryRunsOncePerKey(t *testing.T) {
	f := &countingFactory{}
	c := NewCache(f)

	// Three logical lookups with an identical descriptor.
	for i := 0; i < 3; i++ {
		_, err := c.Get(boxDesc(4))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.builds)
	s := c.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.Equal(t, uint64(1), s.Builds)
}

func TestCache_ClearForcesReconstruction(t *testing.T) {
	f := &countingFactory{}
	c := NewCache(f)

	_, err := c.Get(boxDesc(1))
	require.NoError(t, err)
	c.Clear()
	assert.Equal(t, 0, c.Len())

	_, err = c.Get(boxDesc(1))
	require.NoError(t, err)
	assert.Equal(t, 2, f.builds)
}

func TestCache_FactoryFailureNotStored(t *testing.T) {
	boom := errors.New("gpu out of memory")
	f := &countingFactory{fail: boom}
	c := NewCache(f)

	_, err := c.Get(boxDesc(1))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	// Recovery after the factory heals.
	f.fail = nil
	res, err := c.Get(boxDesc(1))
	require.NoError(t, err)
	assert.NotNil(t, res)
}

func TestResourceDescriptor_KeyStability(t *testing.T) {
	a := boxDesc(1)
	b := boxDesc(1)
	assert.Equal(t, a.Key(), b.Key())

	b.Texture = "stone"
	assert.NotEqual(t, a.Key(), b.Key())
}
