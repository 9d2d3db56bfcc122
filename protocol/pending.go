package protocol

import (
	"context"
	"sync"
)

// pendingQueue holds values waiting for a slot. It is an unbounded FIFO:
// put never blocks, take blocks until a value is available or ctx is done.
type pendingQueue struct {
	mu     sync.Mutex
	items  []Entry
	signal chan struct{}
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{signal: make(chan struct{}, 1)}
}

func (q *pendingQueue) put(e Entry) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *pendingQueue) take(ctx context.Context) (Entry, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items[0] = Entry{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		case <-q.signal:
		}
	}
}

func (q *pendingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
