package journal

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// BadgerStore implements the StableStore interface on top of a badger database.
// Keys are namespaced by prefix so several stores can share one database.
type BadgerStore struct {
	db     *badger.DB
	prefix string
}

// NewBadgerStore wraps db. The caller keeps ownership of db and closes it.
func NewBadgerStore(db *badger.DB, prefix string) *BadgerStore {
	return &BadgerStore{db: db, prefix: prefix}
}

// OpenBadgerStore opens (or creates) a badger database at path.
// An empty path gives an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open badger db at path:%v", path)
	}
	return NewBadgerStore(db, "journal"), nil
}

// Close closes the underlying database.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}

func (b *BadgerStore) key(k []byte) []byte {
	return append([]byte(b.prefix+"/"), k...)
}

// Set implements the StableStore interface.
func (b *BadgerStore) Set(key []byte, val []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(key), val)
	})
	return errors.Wrapf(err, "unable to set key:%s", key)
}

// Get implements the StableStore interface.
func (b *BadgerStore) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get key:%s", key)
	}
	return val, nil
}

// SetUint64 implements the StableStore interface.
func (b *BadgerStore) SetUint64(key []byte, val uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, val)
	return b.Set(key, buf)
}

// GetUint64 implements the StableStore interface.
func (b *BadgerStore) GetUint64(key []byte) (uint64, error) {
	val, err := b.Get(key)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(val) != 8 {
		return 0, errors.Errorf("value of key:%s is %d bytes, not a uint64", key, len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}
