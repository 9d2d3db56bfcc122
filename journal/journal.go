/*
Package journal keeps an ordered, durable record of the values a member delivered.

Acceptor state in ordo is volatile by design. An application that wants to know,
after a restart, which slots it already applied keeps a Journal next to its Node
and feeds it from ConsumeSlot. Any StableStore works: InmemStore for tests,
BadgerStore, or raftboltdb.BoltStore from github.com/hashicorp/raft-boltdb.
*/
package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// lastSlotKey is the key under which the highest journaled slot is kept.
var lastSlotKey = []byte("__ORDO__JOURNAL__LAST__SLOT__")

// ErrOutOfOrder is returned when appending any slot other than the one after the last.
var ErrOutOfOrder = errors.New("journal: slot out of order")

func slotKey(slot uint64) []byte {
	return []byte(fmt.Sprintf("__ORDO__JOURNAL__SLOT__.%020d", slot))
}

// Consumer is anything that hands out decided values in slot order, eg *protocol.Node.
type Consumer interface {
	ConsumeSlot(ctx context.Context) (uint64, []byte, error)
}

// Journal records delivered values by slot number.
type Journal struct {
	mu    sync.Mutex
	store StableStore
}

// New creates a Journal on top of store.
func New(store StableStore) *Journal {
	return &Journal{store: store}
}

// Last returns the highest slot journaled so far, 0 if none.
func (j *Journal) Last() (uint64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last()
}

func (j *Journal) last() (uint64, error) {
	last, err := j.store.GetUint64(lastSlotKey)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "unable to read last journaled slot")
	}
	return last, nil
}

// Append records data as the value of slot. Slots must be appended in
// sequence starting at 1; gaps and repeats are refused.
func (j *Journal) Append(slot uint64, data []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	last, err := j.last()
	if err != nil {
		return err
	}
	if slot != last+1 {
		return errors.Wrapf(ErrOutOfOrder, "got slot:%d, expected slot:%d", slot, last+1)
	}
	// the value goes first so a crash in between never leaves last pointing at nothing.
	if err := j.store.Set(slotKey(slot), data); err != nil {
		return errors.Wrapf(err, "unable to store value of slot:%d", slot)
	}
	if err := j.store.SetUint64(lastSlotKey, slot); err != nil {
		return errors.Wrapf(err, "unable to advance last slot to:%d", slot)
	}
	return nil
}

// Get returns the journaled value of slot.
func (j *Journal) Get(slot uint64) ([]byte, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	last, err := j.last()
	if err != nil {
		return nil, err
	}
	if slot == 0 || slot > last {
		return nil, errors.Wrapf(ErrKeyNotFound, "slot:%d", slot)
	}
	val, err := j.store.Get(slotKey(slot))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read value of slot:%d", slot)
	}
	return val, nil
}

// Drain consumes from c until it fails or ctx is done, journaling every
// value before handing it to apply. apply may be nil.
func (j *Journal) Drain(ctx context.Context, c Consumer, apply func(slot uint64, data []byte)) error {
	for {
		slot, data, err := c.ConsumeSlot(ctx)
		if err != nil {
			return err
		}
		if err := j.Append(slot, data); err != nil {
			return err
		}
		if apply != nil {
			apply(slot, data)
		}
	}
}
