// Package queue implements the single shared, bounded-consumer chunk source
// that every transfer manager pulls from.
package queue

import (
	"sync"

	"github.com/mistvane/distrans/internal/model"
)

// ChunkQueue hands out pending chunks to any number of concurrent consumers,
// exactly once each, and reports drained once nothing remains. It is
// deliberately the simplest possible shared structure: work stealing falls
// out of pull-based consumption rather than any per-host quota or
// estimation.
type ChunkQueue struct {
	mu      sync.Mutex
	pending []model.Chunk
}

// New builds a ChunkQueue pre-populated with chunks. This is the queue's
// only producer operation; it must run before any consumer calls Take.
func New(chunks []model.Chunk) *ChunkQueue {
	pending := make([]model.Chunk, len(chunks))
	copy(pending, chunks)
	return &ChunkQueue{pending: pending}
}

// Take removes and returns one pending chunk, or reports drained if none
// remain. The critical section is brief and never blocks on I/O; order
// among concurrent takers is unspecified.
func (q *ChunkQueue) Take() (model.Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return model.Chunk{}, false
	}

	c := q.pending[0]
	q.pending = q.pending[1:]
	return c, true
}

// Remaining reports how many chunks have not yet been taken. It exists for
// observability (the status endpoint) and tests; the engine itself never
// branches on it.
func (q *ChunkQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
