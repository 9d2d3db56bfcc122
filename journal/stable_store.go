package journal

import "github.com/pkg/errors"

// ErrKeyNotFound is returned by a StableStore when a key has never been set.
// Its text matches the error raft-boltdb returns, since callers compare on it.
var ErrKeyNotFound = errors.New("not found")

// StableStore is used to provide stable storage of delivered values.
// This interface is the same as the one defined in hashicorp/raft,
// so github.com/hashicorp/raft-boltdb and friends can be used directly.
type StableStore interface {
	Set(key []byte, val []byte) error
	// Get returns the value for key, or an ErrKeyNotFound error if key was not found.
	Get(key []byte) ([]byte, error)
	SetUint64(key []byte, val uint64) error
	// GetUint64 returns the uint64 value for key, or 0 if key was not found.
	GetUint64(key []byte) (uint64, error)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrKeyNotFound) || errors.Cause(err).Error() == ErrKeyNotFound.Error()
}
