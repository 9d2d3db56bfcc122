package protocol

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var errQuorumTimeout = errors.New("timed out waiting for a majority")

// propose is the proposer worker. It takes one pending value at a time and
// does not move to the next value until the current slot is settled.
func (n *Node) propose() {
	defer n.wg.Done()
	for {
		e, err := n.pending.take(n.ctx)
		if err != nil {
			return
		}
		slot := n.takeSlot()
		n.logf("slot:%d starting paxos for value:%v", slot, e.ID)
		n.runSlot(n.ctx, slot, e)
	}
}

// runSlot drives slot to a decision for own.
//
// The proposer generates a ballot B and sends Propose to every member, then waits for
// a majority of promises for exactly B. If any promise reports a previously accepted value,
// the one with the highest ballot replaces own for this round. It then sends Accept(B, value)
// and waits for a majority of acks, after which the slot is decided and Confirm goes out.
// Any timeout or shortfall restarts the round with a higher ballot; there is no retry cap.
// If the slot ends up holding some other value, own is queued again for a later slot.
func (n *Node) runSlot(ctx context.Context, slot uint64, own Entry) {
	s := n.slots.getOrCreate(slot)
	for {
		if v, decided := s.decision(); decided {
			if !v.Equal(own) {
				n.logf("slot:%d already decided with value:%v, requeueing value:%v", slot, v.ID, own.ID)
				n.pending.put(own)
			}
			return
		}

		b := n.newBallot()
		promiseReady, ackReady := s.startRound(b, n.majority)

		// phase 1
		n.logf("slot:%d sending propose with ballot:%s", slot, b)
		n.sendAll(Message{Kind: KindPropose, Slot: slot, Ballot: b})
		n.failCheck(AfterSendPropose)

		if err := n.awaitQuorum(ctx, promiseReady); err != nil {
			if ctx.Err() != nil {
				n.logf("slot:%d abandoned while waiting for promises", slot)
				return
			}
			n.logf("slot:%d %v for promises on ballot:%s, retrying with a higher ballot", slot, err, b)
			continue
		}
		if got := s.promiseCount(); got < n.majority {
			n.logf("slot:%d lost promises (%d/%d), retrying", slot, got, n.majority)
			continue
		}
		n.failCheck(AfterBecomingLeader)

		value := s.valueToPropose(own)
		if !value.Equal(own) {
			n.logf("slot:%d must propose previously accepted value:%v", slot, value.ID)
		}

		// phase 2
		n.logf("slot:%d sending accept with ballot:%s value:%v", slot, b, value.ID)
		n.sendAll(Message{Kind: KindAccept, Slot: slot, Ballot: b, Value: &value})

		if err := n.awaitQuorum(ctx, ackReady); err != nil {
			if ctx.Err() != nil {
				n.logf("slot:%d abandoned while waiting for acks", slot)
				return
			}
			n.logf("slot:%d %v for acks on ballot:%s, retrying with a higher ballot", slot, err, b)
			continue
		}
		if got := s.ackCount(); got < n.majority {
			n.logf("slot:%d lost acks (%d/%d), retrying", slot, got, n.majority)
			continue
		}
		n.failCheck(AfterValueAccept)

		decided, _ := s.decide(value)
		n.logf("slot:%d consensus reached, decided value:%v", slot, decided.ID)
		n.sendAll(Message{Kind: KindConfirm, Slot: slot, Value: &decided})
		n.delivery.publish(slot, decided)

		if !decided.Equal(own) {
			n.logf("slot:%d value:%v lost to value:%v, requeueing", slot, own.ID, decided.ID)
			n.pending.put(own)
		}
		return
	}
}

// awaitQuorum waits until ready is closed, the quorum timeout expires or ctx is done.
func (n *Node) awaitQuorum(ctx context.Context, ready <-chan struct{}) error {
	timer := time.NewTimer(n.cfg.QuorumTimeout)
	defer timer.Stop()
	select {
	case <-ready:
		return nil
	case <-timer.C:
		return errQuorumTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
