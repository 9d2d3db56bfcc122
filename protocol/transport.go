package protocol

import "context"

// Transport provides an interface for group communication
// to allow ordo to exchange messages with the other members.
// Delivery is best effort: messages may be lost, and ordering
// is not assumed across senders.
type Transport interface {
	// Send delivers m to the member named to.
	Send(m Message, to string) error
	// Receive blocks until the next inbound message arrives and returns it
	// together with the sender's ID. It unblocks with an error once ctx is
	// done or the transport is closed.
	Receive(ctx context.Context) (Message, string, error)
	// Close releases the transport. Pending and future Receive calls fail.
	Close() error
}
