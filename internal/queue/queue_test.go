package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistvane/distrans/internal/model"
)

func chunks(n int) []model.Chunk {
	cs := make([]model.Chunk, n)
	for i := range cs {
		cs[i] = model.Chunk{Index: i, Name: "chunk"}
	}
	return cs
}

func TestTake_DrainsExactlyOnceEach(t *testing.T) {
	const k = 25
	q := New(chunks(k))

	seen := make([]bool, k)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for h := 0; h < 4; h++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				c, ok := q.Take()
				if !ok {
					return
				}
				mu.Lock()
				require.False(t, seen[c.Index], "chunk %d taken twice", c.Index)
				seen[c.Index] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for i, s := range seen {
		assert.True(t, s, "chunk %d was never taken", i)
	}
	_, ok := q.Take()
	assert.False(t, ok)
}

func TestTake_EmptyQueueDrainsImmediately(t *testing.T) {
	q := New(nil)
	_, ok := q.Take()
	assert.False(t, ok)
}

func TestRemaining(t *testing.T) {
	q := New(chunks(3))
	assert.Equal(t, 3, q.Remaining())
	_, _ = q.Take()
	assert.Equal(t, 2, q.Remaining())
}
