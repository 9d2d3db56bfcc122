package protocol

import "github.com/google/uuid"

// Entry is a value travelling through the engine.
// Every call to Broadcast mints a fresh ID, so two broadcasts carrying the same
// bytes are still two distinct values and both get a slot.
type Entry struct {
	ID   uuid.UUID `json:"id"`
	Data []byte    `json:"data"`
}

// newEntry copies data, so callers may reuse their buffer after Broadcast.
func newEntry(data []byte) Entry {
	return Entry{ID: uuid.New(), Data: append([]byte(nil), data...)}
}

// Equal compares entries by identity.
func (e Entry) Equal(other Entry) bool {
	return e.ID == other.ID
}
