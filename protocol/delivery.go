package protocol

import (
	"context"
	"sync"
)

// deliveryQueue buffers decided slots and hands them out strictly in slot
// order starting at 1. Decisions may arrive in any order; a slot waits in
// the buffer until every lower slot has been delivered.
type deliveryQueue struct {
	mu      sync.Mutex
	next    uint64
	decided map[uint64]Entry
	// changed is closed and replaced on every publish so waiters can select on it.
	changed chan struct{}
}

func newDeliveryQueue() *deliveryQueue {
	return &deliveryQueue{
		next:    1,
		decided: make(map[uint64]Entry),
		changed: make(chan struct{}),
	}
}

// publish offers a decision. Slots already delivered or already buffered are ignored.
func (d *deliveryQueue) publish(slot uint64, e Entry) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot < d.next {
		return false
	}
	if _, ok := d.decided[slot]; ok {
		return false
	}
	d.decided[slot] = e
	close(d.changed)
	d.changed = make(chan struct{})
	return true
}

// consume blocks until the next slot is decided, then returns it and advances.
func (d *deliveryQueue) consume(ctx context.Context) (uint64, Entry, error) {
	for {
		d.mu.Lock()
		if e, ok := d.decided[d.next]; ok {
			slot := d.next
			delete(d.decided, slot)
			d.next++
			d.mu.Unlock()
			return slot, e, nil
		}
		changed := d.changed
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, Entry{}, ctx.Err()
		case <-changed:
		}
	}
}

func (d *deliveryQueue) nextDeliverable() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next
}
