package client

import (
	"context"
	"time"

	"github.com/worldmirror/worldmirror/internal/bridge"
	"github.com/worldmirror/worldmirror/internal/config"
	"github.com/worldmirror/worldmirror/internal/core/events/bus"
	"github.com/worldmirror/worldmirror/internal/core/observability/log"
	"github.com/worldmirror/worldmirror/internal/core/scheduler"
	"github.com/worldmirror/worldmirror/internal/core/systems/physics"
	"github.com/worldmirror/worldmirror/internal/core/visual"
	"github.com/worldmirror/worldmirror/internal/core/world"
)

// Client wires the core into a single frame loop: input ingestion, system
// tick, then synchronization drain, in that order every frame. The loop is
// pull-driven; tests call Step directly with a fixed delta-time.
type Client struct {
	cfg    *config.Config
	log    log.Log
	events bus.Bus
	world  *world.World
	sched  *scheduler.Scheduler
	engine *visual.Engine
	bridge *bridge.Bridge
}

func New(cfg *config.Config, renderer visual.RendererPort, factory visual.ResourceFactory, logger log.Log) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	events := bus.New()
	w := world.NewWorld(events)

	sched := scheduler.New(logger)
	if err := sched.Register(physics.New()); err != nil {
		return nil, err
	}

	lod, err := visual.NewLODManager(cfg.LOD, renderer, logger)
	if err != nil {
		return nil, err
	}
	engine, err := visual.NewEngine(w, events, renderer, visual.NewCache(factory), lod, cfg.Engine(), logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:    cfg,
		log:    logger,
		events: events,
		world:  w,
		sched:  sched,
		engine: engine,
	}, nil
}

// AttachBridge connects a network update feed. Must be called before Start.
func (c *Client) AttachBridge(b *bridge.Bridge) {
	c.bridge = b
}

func (c *Client) World() *world.World             { return c.world }
func (c *Client) Events() bus.Bus                 { return c.events }
func (c *Client) Engine() *visual.Engine          { return c.engine }
func (c *Client) Scheduler() *scheduler.Scheduler { return c.sched }

// Start brings up the engine and, when attached, the bridge reader.
func (c *Client) Start(ctx context.Context) error {
	if err := c.engine.Start(); err != nil {
		return err
	}
	if c.bridge != nil {
		c.bridge.Start(ctx)
	}
	return nil
}

// Step runs one frame: ingest completed network data, tick systems, drain
// the synchronization engine.
func (c *Client) Step(dt float64) {
	if c.bridge != nil {
		c.bridge.Apply(c.world)
	}
	c.sched.Tick(c.world, dt)
	c.engine.Tick()
}

// Run starts the client and drives Step at the configured frame interval
// until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Stop()

	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			c.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Stop tears the pipeline down: engine first so renderer handles release,
// then the bridge.
func (c *Client) Stop() {
	c.engine.Stop()
	if c.bridge != nil {
		if err := c.bridge.Close(); err != nil {
			c.log.Warn("bridge close failed", log.Err(err))
		}
	}
}
