package bus

import (
	"time"

	"github.com/google/uuid"
)

// EventKind enumerates the lifecycle signals the world emits.
type EventKind uint8

const (
	EntityCreated EventKind = iota
	EntityDestroyed
	ComponentChanged
)

func (k EventKind) String() string {
	switch k {
	case EntityCreated:
		return "entity_created"
	case EntityDestroyed:
		return "entity_destroyed"
	case ComponentChanged:
		return "component_changed"
	default:
		return "unknown"
	}
}

// Change classifies what part of an entity a ComponentChanged event touched.
type Change uint8

const (
	ChangeTransform Change = iota
	ChangeVisual
	ChangeMaterial
	ChangePhysics
	ChangeHealth
)

func (c Change) String() string {
	switch c {
	case ChangeTransform:
		return "transform"
	case ChangeVisual:
		return "visual"
	case ChangeMaterial:
		return "material"
	case ChangePhysics:
		return "physics"
	case ChangeHealth:
		return "health"
	default:
		return "unknown"
	}
}

// Event is a single lifecycle notification. Change is meaningful only for
// ComponentChanged events.
type Event struct {
	Kind      EventKind
	Entity    uuid.UUID
	Change    Change
	Timestamp time.Time
}

// EventHandler processes a single event. Handlers run synchronously on the
// publishing goroutine; event N+1 is not dispatched until every handler for
// event N has returned.
type EventHandler func(Event) error

// Subscription is a handle for an active event registration.
type Subscription interface {
	ID() string
	IsActive() bool
	Cancel() error
}

// Bus is the change notifier. Instances are injected into constructors rather
// than shared through a package-level singleton, so subscription scope stays
// explicit and testable.
type Bus interface {
	Publish(event Event) error
	Subscribe(kind EventKind, handler EventHandler) (Subscription, error)
	SubscribeAll(handler EventHandler) (Subscription, error)
	Unsubscribe(sub Subscription) error
	Metrics() Metrics
}

// Metrics holds dispatch counters.
type Metrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
}
