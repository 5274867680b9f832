package bus

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// subscription implements Subscription.
type subscription struct {
	id      string
	kind    EventKind
	all     bool
	handler EventHandler
	active  bool
	cancel  func()
}

func (s *subscription) ID() string     { return s.id }
func (s *subscription) IsActive() bool { return s.active }
func (s *subscription) Cancel() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.active = false
	return nil
}

// inMemoryBus is a thread-safe Bus. Dispatch is synchronous and copy-on-iterate:
// the subscriber set is snapshotted before handlers run, so a handler may cancel
// its own (or any other) subscription without corrupting the dispatch loop.
type inMemoryBus struct {
	mu sync.RWMutex
	// handlers: kind -> subID -> subscription
	handlers map[EventKind]map[string]*subscription
	// allHandlers receive every event regardless of kind
	allHandlers map[string]*subscription
	metrics     Metrics
}

// New creates a new Bus instance.
func New() Bus {
	return &inMemoryBus{
		handlers:    make(map[EventKind]map[string]*subscription),
		allHandlers: make(map[string]*subscription),
	}
}

func (b *inMemoryBus) Subscribe(kind EventKind, handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("bus: nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[string]*subscription)
	}
	id := uuid.NewString()
	s := &subscription{id: id, kind: kind, handler: handler, active: true}
	s.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if m, ok := b.handlers[kind]; ok {
			delete(m, id)
		}
		s.active = false
	}
	b.handlers[kind][id] = s
	return s, nil
}

func (b *inMemoryBus) SubscribeAll(handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("bus: nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	s := &subscription{id: id, all: true, handler: handler, active: true}
	s.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.allHandlers, id)
		s.active = false
	}
	b.allHandlers[id] = s
	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) Publish(event Event) error {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.handlers[event.Kind])+len(b.allHandlers))
	if m := b.handlers[event.Kind]; m != nil {
		for _, s := range m {
			subs = append(subs, s)
		}
	}
	for _, s := range b.allHandlers {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	var all error
	delivered := 0
	for _, s := range subs {
		if !s.active {
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}

	b.mu.Lock()
	b.metrics.Published++
	b.metrics.DeliveredHandlers += uint64(delivered)
	if all != nil {
		b.metrics.Errors++
	}
	b.mu.Unlock()
	return all
}

func (b *inMemoryBus) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := b.metrics
	var active uint64
	for _, subs := range b.handlers {
		active += uint64(len(subs))
	}
	active += uint64(len(b.allHandlers))
	m.SubscribersActive = active
	return m
}
