package bridge

import (
	"context"
	"encoding/json"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/worldmirror/worldmirror/internal/core/observability/log"
	"github.com/worldmirror/worldmirror/internal/core/world"
	"github.com/worldmirror/worldmirror/pkg/generic"
	"github.com/worldmirror/worldmirror/pkg/sequence"
)

// Bridge consumes decoded object updates from a transport on a background
// goroutine and hands them to the frame thread through a thread-safe queue.
// The background side never touches the world; Apply runs on the frame
// thread and is the only place world mutation happens.
//
// The bridge owns the external-to-entity lookup table. That table is read and
// written only inside Apply, so it needs no lock.
type Bridge struct {
	transport Transport
	handoff   *sequence.Queue[*ObjectUpdate]
	pool      *generic.Pool[*ObjectUpdate]
	log       log.Log

	byExternal map[uint64]world.EntityID

	group  *errgroup.Group
	cancel context.CancelFunc

	decodeFailures uint64
}

func New(transport Transport, logger log.Log) *Bridge {
	return &Bridge{
		transport:  transport,
		handoff:    sequence.NewQueue[*ObjectUpdate](),
		pool:       generic.NewHotPool(func() *ObjectUpdate { return &ObjectUpdate{} }, 32),
		log:        logger,
		byExternal: make(map[uint64]world.EntityID),
	}
}

// Start launches the background reader. It returns immediately.
func (b *Bridge) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.group, ctx = errgroup.WithContext(ctx)
	b.group.Go(func() error {
		return b.readLoop(ctx)
	})
}

func (b *Bridge) readLoop(ctx context.Context) error {
	for {
		data, err := b.transport.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			b.log.Warn("bridge transport closed", log.Err(err))
			return err
		}
		u := b.pool.Get()
		u.Reset()
		if err := json.Unmarshal(data, u); err != nil {
			b.decodeFailures++
			b.pool.Put(u)
			b.log.Warn("object update decode failed", log.Err(err))
			continue
		}
		b.handoff.Enqueue(u)
	}
}

// Close stops the reader and releases the transport.
func (b *Bridge) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	err := b.transport.Close()
	if b.group != nil {
		if werr := b.group.Wait(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// Pending reports how many decoded updates await Apply.
func (b *Bridge) Pending() int {
	return b.handoff.Len()
}

// Apply drains the hand-off queue into the world. Must run on the frame
// thread. Returns the number of updates applied.
func (b *Bridge) Apply(w *world.World) int {
	updates := b.handoff.Drain()
	for _, u := range updates {
		b.apply(w, u)
		u.Reset()
		b.pool.Put(u)
	}
	return len(updates)
}

func (b *Bridge) apply(w *world.World, u *ObjectUpdate) {
	id, known := b.byExternal[u.ExternalID]

	if u.Remove {
		if known {
			w.RemoveEntity(id)
			delete(b.byExternal, u.ExternalID)
		}
		return
	}

	if !known {
		id = w.CreateEntity()
		b.byExternal[u.ExternalID] = id
	}

	t := world.Transform{Position: u.Position, Rotation: u.Rotation, Scale: u.Scale}
	if t.Rotation == (world.Quaternion{}) {
		t.Rotation = world.Identity()
	}
	if t.Scale == (world.Vector3{}) {
		t.Scale = world.Vector3{X: 1, Y: 1, Z: 1}
	}
	if err := w.AddComponent(id, t); err != nil {
		b.log.Warn("transform apply failed",
			log.Uint64("external_id", u.ExternalID),
			log.Err(err))
		return
	}
	_ = w.AddComponent(id, world.Visual{Shape: u.ShapeKind(), Dimensions: u.Dimensions})
	if u.Material != nil {
		_ = w.AddComponent(id, world.Material{
			Color:     u.Material.Color,
			Roughness: u.Material.Roughness,
			Metallic:  u.Material.Metallic,
			Texture:   u.Material.Texture,
		})
	}
	if u.Velocity != nil {
		_ = w.AddComponent(id, world.Physics{Velocity: *u.Velocity})
	}
}

// EntityFor resolves an external object id to its entity.
func (b *Bridge) EntityFor(externalID uint64) (world.EntityID, bool) {
	id, ok := b.byExternal[externalID]
	return id, ok
}
