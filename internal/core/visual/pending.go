package visual

import (
	"container/list"
	"time"

	"github.com/worldmirror/worldmirror/internal/core/events/bus"
	"github.com/worldmirror/worldmirror/internal/core/world"
)

// PendingUpdate is a deferred, coalesced change record. The world is re-read
// at drain time, so the update always reflects the latest state, not the
// state at enqueue time.
type PendingUpdate struct {
	Entity     world.EntityID
	Change     bus.Change
	EnqueuedAt time.Time
}

type pendingKey struct {
	entity world.EntityID
	change bus.Change
}

// updateQueue is a FIFO of pending updates with idempotent coalescing: a
// second enqueue of the same (entity, change) pair before a drain is a no-op,
// keeping the entry's original queue position.
type updateQueue struct {
	order *list.List
	index map[pendingKey]*list.Element
}

func newUpdateQueue() *updateQueue {
	return &updateQueue{
		order: list.New(),
		index: make(map[pendingKey]*list.Element),
	}
}

// Enqueue appends the update unless an equal pending entry already exists.
// Reports whether a new entry was added.
func (q *updateQueue) Enqueue(u PendingUpdate) bool {
	key := pendingKey{entity: u.Entity, change: u.Change}
	if _, ok := q.index[key]; ok {
		return false
	}
	q.index[key] = q.order.PushBack(u)
	return true
}

// PopOldest removes and returns the oldest pending update.
func (q *updateQueue) PopOldest() (PendingUpdate, bool) {
	front := q.order.Front()
	if front == nil {
		return PendingUpdate{}, false
	}
	u := front.Value.(PendingUpdate)
	q.order.Remove(front)
	delete(q.index, pendingKey{entity: u.Entity, change: u.Change})
	return u, true
}

// RemoveEntity purges every pending entry for the entity and returns how many
// were dropped.
func (q *updateQueue) RemoveEntity(id world.EntityID) int {
	removed := 0
	for e := q.order.Front(); e != nil; {
		next := e.Next()
		u := e.Value.(PendingUpdate)
		if u.Entity == id {
			q.order.Remove(e)
			delete(q.index, pendingKey{entity: u.Entity, change: u.Change})
			removed++
		}
		e = next
	}
	return removed
}

func (q *updateQueue) Len() int {
	return q.order.Len()
}

func (q *updateQueue) Clear() {
	q.order.Init()
	q.index = make(map[pendingKey]*list.Element)
}
