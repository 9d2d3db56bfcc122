package protocol

import "fmt"

// Kind identifies a wire message type.
type Kind uint8

const (
	// KindPropose is phase 1a, sent by a proposer to every member.
	KindPropose Kind = iota + 1
	// KindPromise is phase 1b, an acceptor agrees to honor a ballot.
	KindPromise
	// KindRefuse is phase 1b, an acceptor already promised a higher ballot.
	KindRefuse
	// KindAccept is phase 2a.
	KindAccept
	// KindAck is phase 2b, the acceptor accepted the value.
	KindAck
	// KindReject is phase 2b, the acceptor promised a higher ballot.
	KindReject
	// KindConfirm announces a decided value for a slot.
	KindConfirm
	// KindLearn asks the group to repeat the Confirm of a slot.
	KindLearn
)

func (k Kind) String() string {
	switch k {
	case KindPropose:
		return "PROPOSE"
	case KindPromise:
		return "PROMISE"
	case KindRefuse:
		return "REFUSE"
	case KindAccept:
		return "ACCEPT"
	case KindAck:
		return "ACK"
	case KindReject:
		return "REJECT"
	case KindConfirm:
		return "CONFIRM"
	case KindLearn:
		return "LEARN"
	}
	return fmt.Sprintf("KIND(%d)", uint8(k))
}

// Message is the single wire type exchanged between members.
// Which fields are meaningful depends on Kind:
//
//	Propose{Slot, Ballot}
//	Promise{Slot, Ballot, PriorBallot?, PriorValue?}
//	Refuse{Slot, Highest}
//	Accept{Slot, Ballot, Value}
//	Ack{Slot, Ballot}
//	Reject{Slot, Highest}
//	Confirm{Slot, Value}
//	Learn{Slot}
type Message struct {
	Kind   Kind   `json:"kind"`
	Slot   uint64 `json:"slot"`
	Ballot Ballot `json:"ballot"`

	// PriorBallot and PriorValue carry what an acceptor accepted before promising.
	PriorBallot Ballot `json:"prior_ballot"`
	PriorValue  *Entry `json:"prior_value,omitempty"`

	// Highest is the acceptor's promised ballot in a Refuse or Reject.
	Highest Ballot `json:"highest"`

	Value *Entry `json:"value,omitempty"`
}

func (m Message) String() string {
	switch m.Kind {
	case KindPropose, KindAck:
		return fmt.Sprintf("%s[slot=%d, ballot=%s]", m.Kind, m.Slot, m.Ballot)
	case KindPromise:
		return fmt.Sprintf("%s[slot=%d, ballot=%s, prior=%s]", m.Kind, m.Slot, m.Ballot, m.PriorBallot)
	case KindRefuse, KindReject:
		return fmt.Sprintf("%s[slot=%d, highest=%s]", m.Kind, m.Slot, m.Highest)
	case KindAccept:
		return fmt.Sprintf("%s[slot=%d, ballot=%s, value=%s]", m.Kind, m.Slot, m.Ballot, entryID(m.Value))
	case KindConfirm:
		return fmt.Sprintf("%s[slot=%d, value=%s]", m.Kind, m.Slot, entryID(m.Value))
	}
	return fmt.Sprintf("%s[slot=%d]", m.Kind, m.Slot)
}

func entryID(e *Entry) string {
	if e == nil {
		return "<nil>"
	}
	return e.ID.String()
}
