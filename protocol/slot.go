package protocol

import "sync"

// slotState is the per-slot record. It carries both the acceptor's view
// (promised, accepted) and, when this node is proposing for the slot, the
// proposer's quorum tracking. Everything is guarded by the slot's own mutex,
// so unrelated slots never contend.
type slotState struct {
	sync.Mutex
	slot uint64

	// acceptor
	promised      Ballot
	accepted      Ballot
	acceptedValue *Entry

	// proposer
	proposed     Ballot
	majority     int
	promises     map[string]Message
	acks         map[string]struct{}
	promiseReady chan struct{}
	ackReady     chan struct{}

	// decision; decided never goes back to false.
	decided      bool
	decidedValue Entry
}

func newSlotState(slot uint64) *slotState {
	return &slotState{slot: slot}
}

// startRound resets the proposer-side tracking for ballot b and returns the
// channels that get closed once a majority of promises and acks arrived.
func (s *slotState) startRound(b Ballot, majority int) (promiseReady, ackReady <-chan struct{}) {
	s.Lock()
	defer s.Unlock()
	s.proposed = b
	s.majority = majority
	s.promises = make(map[string]Message)
	s.acks = make(map[string]struct{})
	s.promiseReady = make(chan struct{})
	s.ackReady = make(chan struct{})
	return s.promiseReady, s.ackReady
}

// addPromise records a promise from sender. Promises for any ballot other
// than the active one belong to an abandoned round and are dropped.
func (s *slotState) addPromise(m Message, sender string) (counted bool, count int) {
	s.Lock()
	defer s.Unlock()
	if s.proposed.IsZero() || m.Ballot != s.proposed {
		return false, len(s.promises)
	}
	s.promises[sender] = m
	if len(s.promises) == s.majority {
		close(s.promiseReady)
	}
	return true, len(s.promises)
}

// addAck records an ack from sender, with the same staleness rule as addPromise.
func (s *slotState) addAck(m Message, sender string) (counted bool, count int) {
	s.Lock()
	defer s.Unlock()
	if s.proposed.IsZero() || m.Ballot != s.proposed {
		return false, len(s.acks)
	}
	s.acks[sender] = struct{}{}
	if len(s.acks) == s.majority {
		close(s.ackReady)
	}
	return true, len(s.acks)
}

func (s *slotState) promiseCount() int {
	s.Lock()
	defer s.Unlock()
	return len(s.promises)
}

func (s *slotState) ackCount() int {
	s.Lock()
	defer s.Unlock()
	return len(s.acks)
}

// valueToPropose picks the value for phase 2: the value of the highest
// previously accepted ballot reported in any promise, else own.
func (s *slotState) valueToPropose(own Entry) Entry {
	s.Lock()
	defer s.Unlock()
	var (
		highest Ballot
		value   = own
	)
	for _, p := range s.promises {
		if p.PriorValue == nil || p.PriorBallot.IsZero() {
			continue
		}
		if highest.IsZero() || highest.Less(p.PriorBallot) {
			highest = p.PriorBallot
			value = *p.PriorValue
		}
	}
	return value
}

// decide marks the slot decided with v unless it already is, and returns
// the slot's decided value either way.
func (s *slotState) decide(v Entry) (Entry, bool) {
	s.Lock()
	defer s.Unlock()
	if s.decided {
		return s.decidedValue, false
	}
	s.decided = true
	s.decidedValue = v
	return v, true
}

func (s *slotState) decision() (Entry, bool) {
	s.Lock()
	defer s.Unlock()
	return s.decidedValue, s.decided
}

// slotTable maps slot numbers to their state. Entries are created lazily on
// first touch and never removed.
type slotTable struct {
	mu    sync.Mutex
	slots map[uint64]*slotState
}

func newSlotTable() *slotTable {
	return &slotTable{slots: make(map[uint64]*slotState)}
}

func (t *slotTable) getOrCreate(slot uint64) *slotState {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[slot]
	if !ok {
		s = newSlotState(slot)
		t.slots[slot] = s
	}
	return s
}

func (t *slotTable) get(slot uint64) (*slotState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[slot]
	return s, ok
}
