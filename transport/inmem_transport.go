/*
Package transport provides an in-memory implementation of ordo's Transport interface.
All members live in the same process and exchange messages through a shared Network.
It exists for tests and demos; it also lets a test harness simulate crashes and message loss.
*/
package transport

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/komuw/ordo/protocol"
)

var (
	// ErrClosed is returned by a transport that has been closed.
	ErrClosed = errors.New("transport: closed")
	// ErrUnknownPeer is returned when sending to a member that never joined the network.
	ErrUnknownPeer = errors.New("transport: unknown peer")
)

// Filter decides whether a message from one member to another is delivered.
// Returning false drops the message.
type Filter func(from, to string, m protocol.Message) bool

// Network connects InmemTransports. It is safe for concurrent use.
type Network struct {
	mu           sync.RWMutex
	nodes        map[string]*InmemTransport
	disconnected map[string]bool
	filter       Filter
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		nodes:        make(map[string]*InmemTransport),
		disconnected: make(map[string]bool),
	}
}

// AddNode joins id to the network and returns its transport.
// Adding the same id twice returns the existing transport.
func (nw *Network) AddNode(id string) *InmemTransport {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	if t, ok := nw.nodes[id]; ok {
		return t
	}
	t := &InmemTransport{
		id:      id,
		network: nw,
		signal:  make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
	nw.nodes[id] = t
	return t
}

// Disconnect cuts id off: every message to or from it is silently dropped from now on.
// This is how tests simulate a crashed member.
func (nw *Network) Disconnect(id string) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	nw.disconnected[id] = true
}

// Reconnect undoes Disconnect.
func (nw *Network) Reconnect(id string) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	delete(nw.disconnected, id)
}

// SetFilter installs f for every subsequent message; nil removes it.
func (nw *Network) SetFilter(f Filter) {
	nw.mu.Lock()
	defer nw.mu.Unlock()
	nw.filter = f
}

func (nw *Network) route(from, to string, m protocol.Message) error {
	nw.mu.RLock()
	dst, ok := nw.nodes[to]
	cut := nw.disconnected[from] || nw.disconnected[to]
	filter := nw.filter
	nw.mu.RUnlock()

	if !ok {
		return errors.Wrapf(ErrUnknownPeer, "from:%v to:%v", from, to)
	}
	if cut {
		return nil
	}
	if filter != nil && !filter(from, to, m) {
		return nil
	}
	dst.deliver(envelope{from: from, msg: m})
	return nil
}

type envelope struct {
	from string
	msg  protocol.Message
}

// InmemTransport implements the protocol.Transport interface, to allow ordo to be
// tested in-memory without going over a network.
// Its inbox is unbounded so Send never blocks the sender.
type InmemTransport struct {
	id      string
	network *Network

	mu        sync.Mutex
	inbox     []envelope
	signal    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// ID returns the member this transport belongs to.
func (t *InmemTransport) ID() string {
	return t.id
}

// Send implements the protocol.Transport interface.
func (t *InmemTransport) Send(m protocol.Message, to string) error {
	select {
	case <-t.closed:
		return ErrClosed
	default:
	}
	return t.network.route(t.id, to, m)
}

// Receive implements the protocol.Transport interface.
func (t *InmemTransport) Receive(ctx context.Context) (protocol.Message, string, error) {
	for {
		t.mu.Lock()
		if len(t.inbox) > 0 {
			e := t.inbox[0]
			t.inbox[0] = envelope{}
			t.inbox = t.inbox[1:]
			t.mu.Unlock()
			return e.msg, e.from, nil
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return protocol.Message{}, "", ctx.Err()
		case <-t.closed:
			return protocol.Message{}, "", ErrClosed
		case <-t.signal:
		}
	}
}

// Close implements the protocol.Transport interface.
func (t *InmemTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *InmemTransport) deliver(e envelope) {
	select {
	case <-t.closed:
		return
	default:
	}
	t.mu.Lock()
	t.inbox = append(t.inbox, e)
	t.mu.Unlock()
	select {
	case t.signal <- struct{}{}:
	default:
	}
}
