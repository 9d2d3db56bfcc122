/*
Package protocol is a pure Go implementation of total-order atomic multicast
built from single-decree Paxos run over an unbounded sequence of numbered slots.

Every member of a fixed group can Broadcast values. Each value eventually lands
in some slot, every slot is decided at most once, and every member Consumes the
decided slots in the same increasing order with the same values. Safety holds
under message loss, timeouts and the crash of any minority of members.

Example usage:

	package main

	import (
		"context"
		"fmt"

		"github.com/komuw/ordo/protocol"
		"github.com/komuw/ordo/transport"
	)

	func main() {
		members := []string{"p1", "p2", "p3"}
		network := transport.NewNetwork()

		var nodes []*protocol.Node
		for _, id := range members {
			n, err := protocol.NewNode(id, members, network.AddNode(id), protocol.Config{})
			if err != nil {
				panic(err)
			}
			defer n.Shutdown()
			nodes = append(nodes, n)
		}

		nodes[0].Broadcast([]byte("x"))

		// every member sees "x" at slot 1.
		for _, n := range nodes {
			v, err := n.Consume(context.Background())
			if err != nil {
				panic(err)
			}
			fmt.Printf("%s: %s\n", n.ID, v)
		}
	}

Each Node runs two goroutines. The listener reads the transport and dispatches
every inbound message to the acceptor or to the quorum trackers of the slot it
belongs to. The proposer takes one pending value at a time, assigns it the next
slot and drives that slot through both phases until it is decided.
*/
package protocol

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
)

// Node is one member of the group. It is both a proposer and an acceptor,
// and it is the thing that users of this package create and interact with.
type Node struct {
	// ID should be unique to each member of the group.
	ID       string
	members  []string
	majority int

	trans     Transport
	cfg       Config
	logger    *log.Logger
	failCheck FailCheck

	slots    *slotTable
	pending  *pendingQueue
	delivery *deliveryQueue

	// mu protects ballotCounter and nextSlot. It is only held for the increment.
	mu            sync.Mutex
	ballotCounter uint64
	nextSlot      uint64

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopErr  error
}

// NewNode creates a member of the group and starts its listener and proposer.
// members is the static group membership and must include id.
func NewNode(id string, members []string, trans Transport, cfg Config) (*Node, error) {
	n, err := newNode(id, members, trans, cfg)
	if err != nil {
		return nil, err
	}
	n.start()
	return n, nil
}

func newNode(id string, members []string, trans Transport, cfg Config) (*Node, error) {
	if len(members) == 0 {
		return nil, ErrNoMembers
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if seen[m] {
			return nil, errors.Errorf("ordo: member:%v is listed more than once", m)
		}
		seen[m] = true
	}
	if !seen[id] {
		return nil, errors.Wrapf(ErrNotMember, "id:%v members:%v", id, members)
	}
	if trans == nil {
		return nil, errors.New("ordo: transport is nil")
	}

	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		ID:            id,
		members:       append([]string(nil), members...),
		majority:      len(members)/2 + 1,
		trans:         trans,
		cfg:           cfg,
		logger:        cfg.Logger,
		failCheck:     cfg.FailCheck,
		slots:         newSlotTable(),
		pending:       newPendingQueue(),
		delivery:      newDeliveryQueue(),
		ballotCounter: 1,
		nextSlot:      1,
		ctx:           ctx,
		cancel:        cancel,
	}
	return n, nil
}

func (n *Node) start() {
	n.logf("starting: members=%v majority=%d quorumTimeout=%v", n.members, n.majority, n.cfg.QuorumTimeout)
	n.wg.Add(2)
	go n.listen()
	go n.propose()
}

// Broadcast queues value for total-order delivery to every member.
// It never blocks. After Shutdown it does nothing.
func (n *Node) Broadcast(value []byte) {
	if n.ctx.Err() != nil {
		n.logf("broadcast after shutdown dropped")
		return
	}
	e := newEntry(value)
	n.pending.put(e)
	n.logf("queued value:%v", e.ID)
}

// Consume blocks until the next slot in sequence is decided and returns its value.
// It fails with ErrShutdown if the node stops, or with ctx.Err() if ctx is done first.
func (n *Node) Consume(ctx context.Context) ([]byte, error) {
	_, v, err := n.ConsumeSlot(ctx)
	return v, err
}

// ConsumeSlot is Consume that also reports which slot the value was decided in.
// The returned slice belongs to the caller.
//
// While it waits, every QuorumTimeout it asks the group for the decision of the
// slot it is waiting on, so a member whose Confirm was lost still catches up.
func (n *Node) ConsumeSlot(ctx context.Context) (uint64, []byte, error) {
	if n.ctx.Err() != nil {
		return 0, nil, ErrShutdown
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(n.ctx, cancel)
	defer stop()

	for {
		waitCtx, waitCancel := context.WithTimeout(ctx, n.cfg.QuorumTimeout)
		slot, e, err := n.delivery.consume(waitCtx)
		waitCancel()
		if err == nil {
			n.logf("delivering slot:%d value:%v", slot, e.ID)
			return slot, append([]byte(nil), e.Data...), nil
		}
		if n.ctx.Err() != nil {
			return 0, nil, ErrShutdown
		}
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		n.sendAll(Message{Kind: KindLearn, Slot: n.delivery.nextDeliverable()})
	}
}

// Decided reports the value decided for slot, if this node knows of one.
func (n *Node) Decided(slot uint64) ([]byte, bool) {
	s, ok := n.slots.get(slot)
	if !ok {
		return nil, false
	}
	e, ok := s.decision()
	if !ok {
		return nil, false
	}
	return append([]byte(nil), e.Data...), true
}

// Shutdown stops the listener and the proposer and closes the transport.
// A round that is in flight is abandoned. Calling Shutdown more than once is safe.
func (n *Node) Shutdown() error {
	n.stopOnce.Do(func() {
		n.logf("shutting down")
		n.cancel()
		if err := n.trans.Close(); err != nil {
			n.stopErr = errors.Wrapf(err, "unable to close transport of node:%v", n.ID)
		}
		n.wg.Wait()
		n.logf("shutdown complete")
	})
	return n.stopErr
}

// listen reads the transport and dispatches each message in turn.
func (n *Node) listen() {
	defer n.wg.Done()
	for {
		m, from, err := n.trans.Receive(n.ctx)
		if err != nil {
			if n.ctx.Err() == nil {
				n.logf("listener stopping, receive failed: %+v", err)
			}
			return
		}
		n.dispatch(m, from)
	}
}

// dispatch routes m to exactly one handler according to its kind.
func (n *Node) dispatch(m Message, from string) {
	switch m.Kind {
	case KindPropose:
		n.handlePropose(m, from)
	case KindAccept:
		n.handleAccept(m, from)
	case KindPromise:
		n.handlePromise(m, from)
	case KindAck:
		n.handleAck(m, from)
	case KindRefuse, KindReject:
		n.handleConflict(m, from)
	case KindConfirm:
		n.handleConfirm(m, from)
	case KindLearn:
		n.handleLearn(m, from)
	default:
		n.logf("discarding message of unknown kind:%v from:%v %s", m.Kind, from, litter.Sdump(m))
	}
}

// newBallot returns a ballot strictly higher than any this node generated before.
func (n *Node) newBallot() Ballot {
	n.mu.Lock()
	defer n.mu.Unlock()
	b := Ballot{Counter: n.ballotCounter, NodeID: n.ID}
	n.ballotCounter++
	return b
}

// observeBallot makes sure the next generated ballot beats b.
func (n *Node) observeBallot(b Ballot) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b.Counter >= n.ballotCounter {
		n.ballotCounter = b.Counter + 1
		return true
	}
	return false
}

func (n *Node) takeSlot() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := n.nextSlot
	n.nextSlot++
	return s
}

func (n *Node) send(m Message, to string) {
	if err := n.trans.Send(m, to); err != nil {
		n.logf("unable to send %s to:%v: %v", m, to, err)
	}
}

func (n *Node) sendAll(m Message) {
	for _, member := range n.members {
		n.send(m, member)
	}
}

func (n *Node) logf(format string, args ...interface{}) {
	n.logger.Output(2, fmt.Sprintf("[%s] ", n.ID)+fmt.Sprintf(format, args...)) // nolint: errcheck
}
