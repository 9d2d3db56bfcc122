package protocol

import (
	"testing"
)

func TestSlotState_valueToPropose(t *testing.T) {
	own := newEntry([]byte("own"))
	older := newEntry([]byte("older"))
	newer := newEntry([]byte("newer"))
	b := Ballot{Counter: 10, NodeID: "p1"}

	tests := []struct {
		name     string
		promises map[string]Message
		want     Entry
	}{
		{name: "no prior values keeps own",
			promises: map[string]Message{
				"p1": {Kind: KindPromise, Ballot: b},
				"p2": {Kind: KindPromise, Ballot: b},
			},
			want: own},
		{name: "single prior value wins over own",
			promises: map[string]Message{
				"p1": {Kind: KindPromise, Ballot: b},
				"p2": {Kind: KindPromise, Ballot: b, PriorBallot: Ballot{Counter: 2, NodeID: "p3"}, PriorValue: &older},
			},
			want: older},
		{name: "highest prior ballot wins",
			promises: map[string]Message{
				"p1": {Kind: KindPromise, Ballot: b, PriorBallot: Ballot{Counter: 2, NodeID: "p3"}, PriorValue: &older},
				"p2": {Kind: KindPromise, Ballot: b, PriorBallot: Ballot{Counter: 4, NodeID: "p2"}, PriorValue: &newer},
				"p3": {Kind: KindPromise, Ballot: b},
			},
			want: newer},
		{name: "tie on counter broken by node id",
			promises: map[string]Message{
				"p1": {Kind: KindPromise, Ballot: b, PriorBallot: Ballot{Counter: 4, NodeID: "p3"}, PriorValue: &older},
				"p2": {Kind: KindPromise, Ballot: b, PriorBallot: Ballot{Counter: 4, NodeID: "p2"}, PriorValue: &newer},
			},
			want: older},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSlotState(1)
			s.startRound(b, 2)
			for sender, m := range tt.promises {
				s.addPromise(m, sender)
			}
			got := s.valueToPropose(own)
			if !got.Equal(tt.want) {
				t.Errorf("\ngot = %s, \nwanted = %s", got.Data, tt.want.Data)
			}
		})
	}
}

func TestSlotState_acks(t *testing.T) {
	s := newSlotState(1)
	b := Ballot{Counter: 1, NodeID: "p1"}
	_, ackReady := s.startRound(b, 2)

	if counted, _ := s.addAck(Message{Kind: KindAck, Ballot: Ballot{Counter: 1, NodeID: "p2"}}, "p2"); counted {
		t.Error("ack for another ballot must not count")
	}
	s.addAck(Message{Kind: KindAck, Ballot: b}, "p1")
	select {
	case <-ackReady:
		t.Fatal("ackReady closed before a majority")
	default:
	}
	if counted, count := s.addAck(Message{Kind: KindAck, Ballot: b}, "p3"); !counted || count != 2 {
		t.Errorf("\ngot = %v %d, \nwanted = true 2", counted, count)
	}
	// more acks past the majority must not close ackReady twice.
	s.addAck(Message{Kind: KindAck, Ballot: b}, "p2")
	select {
	case <-ackReady:
	default:
		t.Error("ackReady should be closed")
	}
	if got := s.ackCount(); got != 3 {
		t.Errorf("\ngot = %#+v, \nwanted = %#+v", got, 3)
	}
}

func TestSlotState_decide(t *testing.T) {
	s := newSlotState(1)
	if _, ok := s.decision(); ok {
		t.Fatal("fresh slot should be undecided")
	}
	first := newEntry([]byte("first"))
	second := newEntry([]byte("second"))

	if got, ok := s.decide(first); !ok || !got.Equal(first) {
		t.Errorf("\ngot = %s %v, \nwanted = first true", got.Data, ok)
	}
	if got, ok := s.decide(second); ok || !got.Equal(first) {
		t.Errorf("\n decided value changed \ngot = %s %v, \nwanted = first false", got.Data, ok)
	}
	if got, ok := s.decision(); !ok || !got.Equal(first) {
		t.Errorf("\ngot = %s %v, \nwanted = first true", got.Data, ok)
	}
}

func TestSlotTable(t *testing.T) {
	tbl := newSlotTable()
	if _, ok := tbl.get(1); ok {
		t.Fatal("empty table returned a slot")
	}
	a := tbl.getOrCreate(1)
	b := tbl.getOrCreate(1)
	if a != b {
		t.Error("getOrCreate should return the same state for the same slot")
	}
	if got, ok := tbl.get(1); !ok || got != a {
		t.Error("get should find a created slot")
	}
}
