package journal

import "sync"

// InmemStore implements the StableStore interface.
// It should NEVER be used for production. It is used for unit tests and demos.
// Use github.com/hashicorp/raft-boltdb or BadgerStore instead.
type InmemStore struct {
	l     sync.RWMutex
	kv    map[string][]byte
	kvInt map[string]uint64
}

// NewInmemStore returns an empty InmemStore.
func NewInmemStore() *InmemStore {
	return &InmemStore{
		kv:    make(map[string][]byte),
		kvInt: make(map[string]uint64),
	}
}

// Set implements the StableStore interface.
func (i *InmemStore) Set(key []byte, val []byte) error {
	i.l.Lock()
	defer i.l.Unlock()
	i.kv[string(key)] = append([]byte(nil), val...)
	return nil
}

// Get implements the StableStore interface.
func (i *InmemStore) Get(key []byte) ([]byte, error) {
	i.l.RLock()
	defer i.l.RUnlock()
	val, ok := i.kv[string(key)]

	// see: https://github.com/hashicorp/raft-boltdb/blob/6e5ba93211eaf8d9a2ad7e41ffad8c6f160f9fe3/bolt_store.go#L241-L246
	if !ok {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

// SetUint64 implements the StableStore interface.
func (i *InmemStore) SetUint64(key []byte, val uint64) error {
	i.l.Lock()
	defer i.l.Unlock()
	i.kvInt[string(key)] = val
	return nil
}

// GetUint64 implements the StableStore interface.
func (i *InmemStore) GetUint64(key []byte) (uint64, error) {
	i.l.RLock()
	defer i.l.RUnlock()
	return i.kvInt[string(key)], nil
}
