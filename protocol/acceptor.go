package protocol

// handlePropose handles phase 1 for an acceptor.
// An acceptor promises a ballot only if it is higher than every ballot it promised before,
// and answers with what it has accepted so far so the proposer can adopt it.
// Otherwise it refuses and reports the ballot it has promised.
func (n *Node) handlePropose(m Message, from string) {
	n.logf("received %s from:%v", m, from)
	n.failCheck(ReceivePropose)

	s := n.slots.getOrCreate(m.Slot)
	s.Lock()
	var reply Message
	if s.promised.IsZero() || s.promised.Less(m.Ballot) {
		s.promised = m.Ballot
		reply = Message{
			Kind:        KindPromise,
			Slot:        m.Slot,
			Ballot:      m.Ballot,
			PriorBallot: s.accepted,
			PriorValue:  s.acceptedValue,
		}
	} else {
		reply = Message{Kind: KindRefuse, Slot: m.Slot, Highest: s.promised}
	}
	s.Unlock()

	n.send(reply, from)
	n.failCheck(AfterSendVote)
	n.logf("sent %s to:%v", reply, from)
}

// handleAccept handles phase 2 for an acceptor.
// Unlike Propose, a ballot equal to the promised one is accepted: that is the
// proposer following up on the promise it was given.
func (n *Node) handleAccept(m Message, from string) {
	n.logf("received %s from:%v", m, from)
	if m.Value == nil {
		n.logf("discarding %s from:%v without a value", m, from)
		return
	}

	s := n.slots.getOrCreate(m.Slot)
	s.Lock()
	var reply Message
	if s.promised.IsZero() || !m.Ballot.Less(s.promised) {
		v := *m.Value
		s.promised = m.Ballot
		s.accepted = m.Ballot
		s.acceptedValue = &v
		reply = Message{Kind: KindAck, Slot: m.Slot, Ballot: m.Ballot}
	} else {
		reply = Message{Kind: KindReject, Slot: m.Slot, Highest: s.promised}
	}
	s.Unlock()

	n.send(reply, from)
	n.failCheck(AfterSendVote)
	n.logf("sent %s to:%v", reply, from)
}

// handleConfirm records a decision. It applies whether or not this node took
// part in the winning round; it is how members that missed phase 2 learn the outcome.
func (n *Node) handleConfirm(m Message, from string) {
	if m.Value == nil {
		n.logf("discarding %s from:%v without a value", m, from)
		return
	}
	s := n.slots.getOrCreate(m.Slot)
	v, first := s.decide(*m.Value)
	if first {
		n.logf("slot:%d decided value:%v (confirm from:%v)", m.Slot, v.ID, from)
	} else if !v.Equal(*m.Value) {
		// agreement says this cannot happen; keep the first decision.
		n.logf("slot:%d confirm from:%v carries value:%v but slot is decided with:%v", m.Slot, from, m.Value.ID, v.ID)
	}
	n.delivery.publish(m.Slot, v)
}

// handleLearn answers a member that missed the Confirm of a slot this node knows the decision of.
func (n *Node) handleLearn(m Message, from string) {
	if from == n.ID {
		return
	}
	s, ok := n.slots.get(m.Slot)
	if !ok {
		return
	}
	v, decided := s.decision()
	if !decided {
		return
	}
	n.logf("slot:%d repeating confirm of value:%v to:%v", m.Slot, v.ID, from)
	n.send(Message{Kind: KindConfirm, Slot: m.Slot, Value: &v}, from)
}

// handlePromise counts a promise towards the active round of its slot.
func (n *Node) handlePromise(m Message, from string) {
	s, ok := n.slots.get(m.Slot)
	if !ok {
		return
	}
	if counted, count := s.addPromise(m, from); counted {
		n.logf("slot:%d promise from:%v count=%d/%d", m.Slot, from, count, n.majority)
	}
}

// handleAck counts an ack towards the active round of its slot.
func (n *Node) handleAck(m Message, from string) {
	s, ok := n.slots.get(m.Slot)
	if !ok {
		return
	}
	if counted, count := s.addAck(m, from); counted {
		n.logf("slot:%d ack from:%v count=%d/%d", m.Slot, from, count, n.majority)
	}
}

// handleConflict handles Refuse and Reject: some acceptor promised a ballot at least as high as ours.
func (n *Node) handleConflict(m Message, from string) {
	n.logf("received %s from:%v", m, from)
	if n.observeBallot(m.Highest) {
		n.logf("ballot counter advanced past %s", m.Highest)
	}
}
