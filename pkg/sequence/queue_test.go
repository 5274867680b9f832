package sequence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 5; i++ {
		q.Enqueue(i)
	}

	for i := 0; i < 5; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	_, ok := q.Dequeue()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}

func TestQueue_DrainReturnsAllOldestFirst(t *testing.T) {
	q := NewQueue[string]()
	q.Enqueue("a")
	q.Enqueue("b")
	q.Enqueue("c")

	assert.Equal(t, []string{"a", "b", "c"}, q.Drain())
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := NewQueue[int]()

	const producers, perProducer = 8, 100
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
