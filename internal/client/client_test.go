package client

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldmirror/worldmirror/internal/bridge"
	"github.com/worldmirror/worldmirror/internal/config"
	"github.com/worldmirror/worldmirror/internal/core/observability/log"
	"github.com/worldmirror/worldmirror/internal/core/visual"
	"github.com/worldmirror/worldmirror/internal/core/world"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cl, err := New(config.Default(), visual.NewNopRenderer(), visual.DescriptorFactory{}, log.NewNop())
	require.NoError(t, err)
	return cl
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.MaxEntities = 0

	_, err := New(cfg, visual.NewNopRenderer(), visual.DescriptorFactory{}, log.NewNop())
	assert.ErrorIs(t, err, visual.ErrInvalidConfiguration)
}

func TestClient_StepMirrorsEntities(t *testing.T) {
	cl := newTestClient(t)
	require.NoError(t, cl.Start(context.Background()))
	defer cl.Stop()

	id := cl.World().CreateEntity()
	require.NoError(t, cl.World().AddComponent(id, world.Transform{}))
	require.NoError(t, cl.World().AddComponent(id, world.Visual{Shape: world.ShapeBox}))

	cl.Step(1.0 / 60)

	_, ok := cl.Engine().Mapping(id)
	assert.True(t, ok)
	assert.Equal(t, 1, cl.Engine().MappingCount())
}

func TestClient_StepRunsPhysicsBeforeSync(t *testing.T) {
	cl := newTestClient(t)
	require.NoError(t, cl.Start(context.Background()))
	defer cl.Stop()

	id := cl.World().CreateEntity()
	require.NoError(t, cl.World().AddComponent(id, world.Transform{}))
	require.NoError(t, cl.World().AddComponent(id, world.Visual{Shape: world.ShapeSphere}))
	require.NoError(t, cl.World().AddComponent(id, world.Physics{Velocity: world.Vector3{X: 60}}))

	cl.Step(0.5)

	tr, _ := cl.World().Transform(id)
	assert.Equal(t, 30.0, tr.Position.X)
	_, ok := cl.Engine().Mapping(id)
	assert.True(t, ok)
}

type scriptedTransport struct {
	frames chan []byte
}

func (t *scriptedTransport) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case data, ok := <-t.frames:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	}
}

func (t *scriptedTransport) Close() error { return nil }

func TestClient_BridgeFeedsFrameLoop(t *testing.T) {
	cl := newTestClient(t)

	transport := &scriptedTransport{frames: make(chan []byte, 1)}
	data, err := json.Marshal(bridge.ObjectUpdate{
		ExternalID: 11,
		Position:   world.Vector3{X: 4},
		Shape:      "sphere",
	})
	require.NoError(t, err)
	transport.frames <- data

	b := bridge.New(transport, log.NewNop())
	cl.AttachBridge(b)
	require.NoError(t, cl.Start(context.Background()))
	defer cl.Stop()

	require.Eventually(t, func() bool { return b.Pending() > 0 },
		time.Second, time.Millisecond)
	cl.Step(1.0 / 60)

	id, ok := b.EntityFor(11)
	require.True(t, ok)
	assert.True(t, cl.World().Exists(id))
	_, mapped := cl.Engine().Mapping(id)
	assert.True(t, mapped)
}

func TestClient_RunStopsOnContextCancel(t *testing.T) {
	cl := newTestClient(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cl.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
