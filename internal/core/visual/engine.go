package visual

import (
	"errors"
	"fmt"
	"time"

	"github.com/worldmirror/worldmirror/internal/core/events/bus"
	"github.com/worldmirror/worldmirror/internal/core/observability/log"
	"github.com/worldmirror/worldmirror/internal/core/world"
)

// State is the engine lifecycle state.
type State uint8

const (
	StateInactive State = iota
	StateInitializing
	StateActive
	StatePaused
	StateErr
)

func (s State) String() string {
	switch s {
	case StateInactive:
		return "inactive"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateErr:
		return "error"
	default:
		return "unknown"
	}
}

// EngineConfig holds the engine tuning knobs. Validate rejects out-of-range
// values before the engine starts.
type EngineConfig struct {
	// MaxEntities bounds the number of live visual mappings. Creations past
	// the limit are skipped and counted, never silently dropped.
	MaxEntities int

	// BatchSize is the maximum number of pending updates drained per tick.
	BatchSize int

	// BudgetFraction of FrameInterval the drain may consume each tick.
	BudgetFraction float64

	// FrameInterval is the host frame period.
	FrameInterval time.Duration
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxEntities:    1000,
		BatchSize:      50,
		BudgetFraction: 0.5,
		FrameInterval:  time.Second / 60,
	}
}

func (c EngineConfig) Validate() error {
	if c.MaxEntities <= 0 {
		return fmt.Errorf("%w: max entities must be positive", ErrInvalidConfiguration)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", ErrInvalidConfiguration)
	}
	if c.BudgetFraction <= 0 || c.BudgetFraction > 1 {
		return fmt.Errorf("%w: budget fraction must be in (0, 1]", ErrInvalidConfiguration)
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("%w: frame interval must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// VisualMapping associates an entity with its renderer handles.
type VisualMapping struct {
	Entity      world.EntityID
	Visual      VisualHandle
	Anchor      AnchorHandle
	ResourceKey ResourceKey
}

// EngineStats are the engine's inspectable counters. Failures surface here
// and in the log rather than as crashes; the pipeline degrades to missing
// visuals instead of halting.
type EngineStats struct {
	Attempted        uint64
	Created          uint64
	Destroyed        uint64
	Processed        uint64
	Coalesced        uint64
	LimitSkipped     uint64
	ResourceFailures uint64
	RendererFailures uint64
	Active           int
	QueueDepth       int
}

// errRetry marks a renderer call failure whose pending entry goes back to the
// queue tail. The entry is retried on a later tick, never within the same one.
var errRetry = errors.New("visual: renderer call failed, update requeued")

// Engine mirrors the world's visible entities into the external rendering
// backend. It subscribes to the change notifier, coalesces per-entity pending
// updates and drains them under a per-tick time budget.
//
// The engine runs entirely on the frame goroutine: lifecycle calls, event
// delivery (world mutation is frame-thread only) and Tick all share it, so no
// internal locking is needed.
type Engine struct {
	world    *world.World
	events   bus.Bus
	renderer RendererPort
	cache    *Cache
	lod      *LODManager
	cfg      EngineConfig
	log      log.Log

	state     State
	errReason error
	sub       bus.Subscription

	// Bidirectional mapping, both sides owned here and kept in sync.
	mappings map[world.EntityID]*VisualMapping
	byHandle map[VisualHandle]world.EntityID

	queue *updateQueue
	stats EngineStats
}

func NewEngine(w *world.World, events bus.Bus, renderer RendererPort, cache *Cache, lod *LODManager, cfg EngineConfig, logger log.Log) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		world:    w,
		events:   events,
		renderer: renderer,
		cache:    cache,
		lod:      lod,
		cfg:      cfg,
		log:      logger,
		mappings: make(map[world.EntityID]*VisualMapping),
		byHandle: make(map[VisualHandle]world.EntityID),
		queue:    newUpdateQueue(),
	}, nil
}

func (e *Engine) State() State { return e.state }

// Err returns the reason the engine entered the error state.
func (e *Engine) Err() error { return e.errReason }

// Start subscribes to the notifier, performs a full initial sync of every
// currently visible entity and begins draining pending updates on Tick.
// Legal from Inactive, Paused and Error.
func (e *Engine) Start() error {
	if e.state == StateActive || e.state == StateInitializing {
		return fmt.Errorf("%w: already started", ErrInvalidState)
	}
	if e.world == nil {
		e.fail(ErrMissingWorld)
		return ErrMissingWorld
	}
	e.errReason = nil
	e.state = StateInitializing

	if e.sub == nil {
		sub, err := e.events.SubscribeAll(e.onEvent)
		if err != nil {
			e.fail(err)
			return err
		}
		e.sub = sub
	}

	for _, id := range e.world.Query(world.KindVisual) {
		if err := e.syncEntity(id, bus.ChangeVisual); err != nil {
			e.log.Warn("initial sync failed for entity",
				log.String("entity", id.String()),
				log.Err(err))
		}
	}

	e.state = StateActive
	e.log.Info("sync engine started",
		log.Int("mappings", len(e.mappings)),
		log.Int("max_entities", e.cfg.MaxEntities))
	return nil
}

// Pause stops update draining. The pending queue keeps accumulating.
func (e *Engine) Pause() error {
	if e.state != StateActive {
		return fmt.Errorf("%w: pause requires active, engine is %s", ErrInvalidState, e.state)
	}
	e.state = StatePaused
	return nil
}

func (e *Engine) Resume() error {
	if e.state != StatePaused {
		return fmt.Errorf("%w: resume requires paused, engine is %s", ErrInvalidState, e.state)
	}
	e.state = StateActive
	return nil
}

// Stop unsubscribes, destroys every visual mapping and clears the pending
// queue. Legal from any state.
func (e *Engine) Stop() {
	if e.sub != nil {
		_ = e.sub.Cancel()
		e.sub = nil
	}
	for id := range e.mappings {
		e.destroyMapping(id)
	}
	e.queue.Clear()
	e.errReason = nil
	e.state = StateInactive
	e.log.Info("sync engine stopped")
}

func (e *Engine) fail(reason error) {
	e.state = StateErr
	e.errReason = reason
	e.log.Error("sync engine entered error state", log.Err(reason))
}

// onEvent receives every notifier event. Destruction is handled immediately;
// everything else becomes a coalesced pending update drained under budget.
func (e *Engine) onEvent(ev bus.Event) error {
	if e.state == StateInactive || e.state == StateErr {
		return nil
	}
	id := world.EntityID(ev.Entity)
	switch ev.Kind {
	case bus.EntityCreated:
		e.enqueue(id, bus.ChangeVisual, ev.Timestamp)
	case bus.EntityDestroyed:
		e.queue.RemoveEntity(id)
		e.destroyMapping(id)
	case bus.ComponentChanged:
		if ev.Change == bus.ChangeHealth {
			return nil
		}
		e.enqueue(id, ev.Change, ev.Timestamp)
	}
	return nil
}

func (e *Engine) enqueue(id world.EntityID, change bus.Change, at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	if !e.queue.Enqueue(PendingUpdate{Entity: id, Change: change, EnqueuedAt: at}) {
		e.stats.Coalesced++
	}
}

// Tick drains up to BatchSize pending updates, oldest first, stopping once
// the time budget is spent. Remaining entries stay queued for the next tick.
// One LOD pass runs per non-empty batch.
func (e *Engine) Tick() {
	if e.state != StateActive {
		return
	}
	start := time.Now()
	budget := time.Duration(float64(e.cfg.FrameInterval) * e.cfg.BudgetFraction)

	processed := 0
	var requeue []PendingUpdate
	for processed < e.cfg.BatchSize {
		// Budget is soft: the entry in progress always completes, and the
		// first entry of a tick always runs so the queue cannot starve.
		if processed > 0 && time.Since(start) >= budget {
			break
		}
		u, ok := e.queue.PopOldest()
		if !ok {
			break
		}
		processed++
		e.stats.Processed++
		if err := e.syncEntity(u.Entity, u.Change); errors.Is(err, errRetry) {
			requeue = append(requeue, u)
		}
	}
	// Failed entries return to the tail: retried on a later tick, never
	// within this one.
	for _, u := range requeue {
		e.queue.Enqueue(u)
	}

	if processed > 0 {
		e.lodPass()
	}
}

// syncEntity re-reads the entity's current state and dispatches by change
// kind. Failures are isolated: one entity never blocks the rest of a batch.
func (e *Engine) syncEntity(id world.EntityID, change bus.Change) error {
	if !e.world.Exists(id) {
		e.destroyMapping(id)
		return nil
	}
	vis, visible := e.world.Visual(id)
	m, mapped := e.mappings[id]
	if !mapped {
		if !visible {
			return nil
		}
		return e.createMapping(id, vis)
	}
	if !visible {
		e.destroyMapping(id)
		return nil
	}

	switch change {
	case bus.ChangeTransform, bus.ChangePhysics:
		t, _ := e.world.Transform(id)
		if err := e.renderer.UpdateVisual(m.Visual, t); err != nil {
			e.stats.RendererFailures++
			e.log.Warn("visual transform update failed",
				log.String("entity", id.String()),
				log.Err(err))
			return errRetry
		}
	case bus.ChangeVisual, bus.ChangeMaterial:
		return e.refreshVisual(id, m, vis)
	}
	return nil
}

// createMapping materializes a visible entity in the rendering backend. The
// entity limit is checked at entry, before any resource construction.
func (e *Engine) createMapping(id world.EntityID, vis world.Visual) error {
	e.stats.Attempted++
	if len(e.mappings) >= e.cfg.MaxEntities {
		e.stats.LimitSkipped++
		e.log.Warn("entity limit reached, visual creation skipped",
			log.String("entity", id.String()),
			log.Int("max_entities", e.cfg.MaxEntities))
		return nil
	}

	mat, _ := e.world.Material(id)
	res, err := e.cache.Get(DescriptorFrom(vis, mat))
	if err != nil {
		// Creation is skipped and retried on the entity's next change event.
		e.stats.ResourceFailures++
		e.log.Warn("resource construction failed",
			log.String("entity", id.String()),
			log.Err(err))
		return nil
	}

	t, _ := e.world.Transform(id)
	anchor, err := e.renderer.CreateAnchor(t.Position)
	if err != nil {
		e.stats.RendererFailures++
		e.log.Warn("anchor creation failed",
			log.String("entity", id.String()),
			log.Err(err))
		return errRetry
	}
	handle, err := e.renderer.CreateVisual(res, t)
	if err != nil {
		_ = e.renderer.DestroyAnchor(anchor)
		e.stats.RendererFailures++
		e.log.Warn("visual creation failed",
			log.String("entity", id.String()),
			log.Err(err))
		return errRetry
	}

	e.mappings[id] = &VisualMapping{Entity: id, Visual: handle, Anchor: anchor, ResourceKey: res.Key}
	e.byHandle[handle] = id
	e.stats.Created++
	if vis.Hidden {
		_ = e.renderer.SetVisualEnabled(handle, false)
	}
	return nil
}

// refreshVisual rebuilds the entity's resource when its descriptor changed,
// reusing the anchor, and reapplies the hidden flag otherwise.
func (e *Engine) refreshVisual(id world.EntityID, m *VisualMapping, vis world.Visual) error {
	mat, _ := e.world.Material(id)
	desc := DescriptorFrom(vis, mat)
	if desc.Key() == m.ResourceKey {
		if err := e.renderer.SetVisualEnabled(m.Visual, !vis.Hidden); err != nil {
			e.stats.RendererFailures++
			return errRetry
		}
		return nil
	}

	res, err := e.cache.Get(desc)
	if err != nil {
		e.stats.ResourceFailures++
		e.log.Warn("resource construction failed",
			log.String("entity", id.String()),
			log.Err(err))
		return nil
	}
	t, _ := e.world.Transform(id)
	handle, err := e.renderer.CreateVisual(res, t)
	if err != nil {
		e.stats.RendererFailures++
		e.log.Warn("visual rebuild failed",
			log.String("entity", id.String()),
			log.Err(err))
		return errRetry
	}
	if err := e.renderer.DestroyVisual(m.Visual); err != nil {
		e.log.Warn("stale visual release failed",
			log.String("entity", id.String()),
			log.Err(err))
	}
	delete(e.byHandle, m.Visual)
	m.Visual = handle
	m.ResourceKey = res.Key
	e.byHandle[handle] = id
	if vis.Hidden {
		_ = e.renderer.SetVisualEnabled(handle, false)
	}
	return nil
}

// destroyMapping releases the entity's renderer handles and drops both sides
// of the mapping. Destroying an entity with no mapping is a no-op.
func (e *Engine) destroyMapping(id world.EntityID) {
	m, ok := e.mappings[id]
	if !ok {
		return
	}
	if err := e.renderer.DestroyVisual(m.Visual); err != nil {
		e.log.Warn("visual release failed",
			log.String("entity", id.String()),
			log.Err(err))
	}
	if err := e.renderer.DestroyAnchor(m.Anchor); err != nil {
		e.log.Warn("anchor release failed",
			log.String("entity", id.String()),
			log.Err(err))
	}
	delete(e.byHandle, m.Visual)
	delete(e.mappings, id)
	e.lod.Forget(id)
	e.stats.Destroyed++
}

// lodPass recomputes detail levels once per drained batch, not per entry.
func (e *Engine) lodPass() {
	if !e.lod.Enabled() {
		return
	}
	for id, m := range e.mappings {
		t, ok := e.world.Transform(id)
		if !ok {
			continue
		}
		if _, err := e.lod.Update(id, m.Visual, t.Position); err != nil {
			e.stats.RendererFailures++
			e.log.Warn("lod apply failed",
				log.String("entity", id.String()),
				log.Err(err))
		}
	}
}

// SetViewpoint moves the LOD reference point.
func (e *Engine) SetViewpoint(v world.Vector3) {
	e.lod.SetViewpoint(v)
}

// Mapping returns the visual mapping for an entity.
func (e *Engine) Mapping(id world.EntityID) (VisualMapping, bool) {
	m, ok := e.mappings[id]
	if !ok {
		return VisualMapping{}, false
	}
	return *m, true
}

// EntityFor resolves a renderer handle back to its entity.
func (e *Engine) EntityFor(handle VisualHandle) (world.EntityID, bool) {
	id, ok := e.byHandle[handle]
	return id, ok
}

func (e *Engine) MappingCount() int {
	return len(e.mappings)
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() EngineStats {
	s := e.stats
	s.Active = len(e.mappings)
	s.QueueDepth = e.queue.Len()
	return s
}
