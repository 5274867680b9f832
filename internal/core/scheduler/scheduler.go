package scheduler

import (
	"errors"
	"time"

	"github.com/worldmirror/worldmirror/internal/core/observability/log"
	"github.com/worldmirror/worldmirror/internal/core/world"
)

// ErrTickInProgress reports a registration attempted from inside a running
// tick. Systems must not register or unregister other systems during a tick.
var ErrTickInProgress = errors.New("scheduler: registration during tick")

// System is a stateless behavior unit invoked once per tick. Systems keep no
// persistent entity-keyed state of their own; they read and write the world.
type System interface {
	Name() string
	Update(w *world.World, dt float64) error
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemEntry struct {
	system System
	stats  SystemStats
}

// Scheduler holds an ordered list of systems and runs them once per tick.
// Registration order is execution order; there is no reordering and no
// parallel dispatch within a tick.
type Scheduler struct {
	systems []*systemEntry
	log     log.Log
	inTick  bool
}

func New(logger log.Log) *Scheduler {
	return &Scheduler{log: logger}
}

// Register appends a system to the ordered list.
func (s *Scheduler) Register(system System) error {
	if s.inTick {
		return ErrTickInProgress
	}
	s.systems = append(s.systems, &systemEntry{
		system: system,
		stats:  SystemStats{Name: system.Name(), MinDuration: time.Duration(1<<63 - 1)},
	})
	return nil
}

// Tick invokes every registered system exactly once, in registration order.
// A failing system is logged and does not stop the tick.
func (s *Scheduler) Tick(w *world.World, dt float64) {
	s.inTick = true
	defer func() { s.inTick = false }()

	for _, entry := range s.systems {
		start := time.Now()
		if err := entry.system.Update(w, dt); err != nil {
			s.log.Warn("system update failed",
				log.String("system", entry.system.Name()),
				log.Err(err))
		}
		s.record(entry, time.Since(start))
	}
}

func (s *Scheduler) record(entry *systemEntry, d time.Duration) {
	st := &entry.stats
	st.ExecutionCount++
	st.LastDuration = d
	st.TotalDuration += d
	if d < st.MinDuration {
		st.MinDuration = d
	}
	if d > st.MaxDuration {
		st.MaxDuration = d
	}
	st.AvgDuration = st.TotalDuration / time.Duration(st.ExecutionCount)
}

// Stats returns a snapshot of per-system execution statistics in registration
// order.
func (s *Scheduler) Stats() []SystemStats {
	out := make([]SystemStats, len(s.systems))
	for i, entry := range s.systems {
		out[i] = entry.stats
	}
	return out
}

// Len returns the number of registered systems.
func (s *Scheduler) Len() int {
	return len(s.systems)
}
