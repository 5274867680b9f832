package visual

import (
	"fmt"

	"github.com/worldmirror/worldmirror/internal/core/observability/log"
	"github.com/worldmirror/worldmirror/internal/core/world"
)

// Level is a discrete detail tier. Lower values carry more detail; the
// mapping from distance to level is monotonic for a fixed configuration.
type Level uint8

const (
	LevelHigh Level = iota
	LevelMedium
	LevelLow
	LevelMinimal
	LevelCulled
)

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	case LevelLow:
		return "low"
	case LevelMinimal:
		return "minimal"
	case LevelCulled:
		return "culled"
	default:
		return "unknown"
	}
}

// Thresholds are the distance cutoffs between levels. Each bound is the
// maximum distance for its level; beyond Cull the entity is culled.
type Thresholds struct {
	High   float64 `json:"high" yaml:"high"`
	Medium float64 `json:"medium" yaml:"medium"`
	Low    float64 `json:"low" yaml:"low"`
	Cull   float64 `json:"cull" yaml:"cull"`
}

func (t Thresholds) Validate() error {
	if t.High <= 0 || !(t.High < t.Medium && t.Medium < t.Low && t.Low < t.Cull) {
		return fmt.Errorf("%w: lod thresholds must be positive and strictly increasing", ErrInvalidConfiguration)
	}
	return nil
}

// DefaultThresholds mirror a mid-range scene scale in meters.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 50, Medium: 100, Low: 200, Cull: 500}
}

type lodEntry struct {
	level  Level
	handle VisualHandle
}

// LODManager computes a detail level per tracked entity from its distance to
// the viewpoint and applies level changes through the renderer. At Culled the
// visual is disabled, not destroyed, so re-enabling needs no rebuild.
type LODManager struct {
	thresholds Thresholds
	renderer   RendererPort
	log        log.Log

	enabled   bool
	viewpoint world.Vector3
	levels    map[world.EntityID]lodEntry
}

func NewLODManager(thresholds Thresholds, renderer RendererPort, logger log.Log) (*LODManager, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &LODManager{
		thresholds: thresholds,
		renderer:   renderer,
		log:        logger,
		enabled:    true,
		levels:     make(map[world.EntityID]lodEntry),
	}, nil
}

// ComputeLevel maps a distance to a level. Larger distance never yields a
// more detailed level than a smaller one.
func (m *LODManager) ComputeLevel(distance float64) Level {
	t := m.thresholds
	switch {
	case distance <= t.High:
		return LevelHigh
	case distance <= t.Medium:
		return LevelMedium
	case distance <= t.Low:
		return LevelLow
	case distance <= t.Cull:
		return LevelMinimal
	default:
		return LevelCulled
	}
}

func (m *LODManager) SetViewpoint(v world.Vector3) {
	m.viewpoint = v
}

func (m *LODManager) Viewpoint() world.Vector3 {
	return m.viewpoint
}

// Update recomputes the entity's level from its position and applies the
// change when it differs from the recorded level. Crossing into Culled hides
// the visual; leaving Culled shows it again.
func (m *LODManager) Update(id world.EntityID, handle VisualHandle, position world.Vector3) (Level, error) {
	if !m.enabled {
		return LevelHigh, nil
	}
	level := m.ComputeLevel(m.viewpoint.Distance(position))
	prev, tracked := m.levels[id]
	if tracked && prev.level == level {
		return level, nil
	}

	if level == LevelCulled {
		if err := m.renderer.SetVisualEnabled(handle, false); err != nil {
			return level, err
		}
	} else if tracked && prev.level == LevelCulled {
		if err := m.renderer.SetVisualEnabled(handle, true); err != nil {
			return level, err
		}
	}
	m.levels[id] = lodEntry{level: level, handle: handle}
	return level, nil
}

// LevelOf returns the recorded level for a tracked entity.
func (m *LODManager) LevelOf(id world.EntityID) (Level, bool) {
	e, ok := m.levels[id]
	return e.level, ok
}

// Forget drops tracking state for an entity whose mapping was destroyed.
func (m *LODManager) Forget(id world.EntityID) {
	delete(m.levels, id)
}

func (m *LODManager) Enabled() bool {
	return m.enabled
}

// SetEnabled toggles level-of-detail processing. Disabling resets every
// tracked entity to High and re-enables any culled visual.
func (m *LODManager) SetEnabled(enabled bool) {
	if m.enabled == enabled {
		return
	}
	m.enabled = enabled
	if enabled {
		return
	}
	for id, e := range m.levels {
		if e.level == LevelCulled {
			if err := m.renderer.SetVisualEnabled(e.handle, true); err != nil {
				m.log.Warn("lod re-enable failed",
					log.String("entity", id.String()),
					log.Err(err))
			}
		}
		m.levels[id] = lodEntry{level: LevelHigh, handle: e.handle}
	}
}
