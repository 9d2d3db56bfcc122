package transport

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/komuw/ordo/protocol"
)

func receiveWithin(t *testing.T, tr *InmemTransport, d time.Duration) (protocol.Message, string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return tr.Receive(ctx)
}

func TestInmemTransport_Send(t *testing.T) {
	nw := NewNetwork()
	p1 := nw.AddNode("p1")
	p2 := nw.AddNode("p2")
	if again := nw.AddNode("p1"); again != p1 {
		t.Error("adding a member twice should return its existing transport")
	}

	tests := []struct {
		name string
		m    protocol.Message
		to   *InmemTransport
	}{
		{name: "to another member", m: protocol.Message{Kind: protocol.KindPropose, Slot: 1}, to: p2},
		{name: "to self", m: protocol.Message{Kind: protocol.KindPromise, Slot: 1}, to: p1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p1.Send(tt.m, tt.to.ID()); err != nil {
				t.Fatalf("Send failed: %+v", err)
			}
			m, from, err := receiveWithin(t, tt.to, time.Second)
			if err != nil {
				t.Fatalf("Receive failed: %+v", err)
			}
			if m.Kind != tt.m.Kind || m.Slot != tt.m.Slot || from != "p1" {
				t.Errorf("\ngot = %s from:%v, \nwanted = %s from:p1", m, from, tt.m)
			}
		})
	}

	if err := p1.Send(protocol.Message{}, "nobody"); !errors.Is(err, ErrUnknownPeer) {
		t.Errorf("\ngot = %v, \nwanted = %v", err, ErrUnknownPeer)
	}
}

func TestInmemTransport_orderPerSender(t *testing.T) {
	nw := NewNetwork()
	p1 := nw.AddNode("p1")
	p2 := nw.AddNode("p2")
	for slot := uint64(1); slot <= 100; slot++ {
		if err := p1.Send(protocol.Message{Kind: protocol.KindConfirm, Slot: slot}, "p2"); err != nil {
			t.Fatalf("Send failed: %+v", err)
		}
	}
	for slot := uint64(1); slot <= 100; slot++ {
		m, _, err := receiveWithin(t, p2, time.Second)
		if err != nil || m.Slot != slot {
			t.Fatalf("\ngot = %d %v, \nwanted = %d <nil>", m.Slot, err, slot)
		}
	}
}

func TestNetwork_Disconnect(t *testing.T) {
	nw := NewNetwork()
	p1 := nw.AddNode("p1")
	p2 := nw.AddNode("p2")

	nw.Disconnect("p2")
	if err := p1.Send(protocol.Message{Kind: protocol.KindPropose}, "p2"); err != nil {
		t.Fatalf("a lost message is not a send error: %+v", err)
	}
	if err := p2.Send(protocol.Message{Kind: protocol.KindPromise}, "p1"); err != nil {
		t.Fatalf("a lost message is not a send error: %+v", err)
	}
	if _, _, err := receiveWithin(t, p2, 50*time.Millisecond); err != context.DeadlineExceeded {
		t.Errorf("\n message to a disconnected member \ngot = %v, \nwanted = %v", err, context.DeadlineExceeded)
	}
	if _, _, err := receiveWithin(t, p1, 50*time.Millisecond); err != context.DeadlineExceeded {
		t.Errorf("\n message from a disconnected member \ngot = %v, \nwanted = %v", err, context.DeadlineExceeded)
	}

	nw.Reconnect("p2")
	if err := p1.Send(protocol.Message{Kind: protocol.KindPropose, Slot: 7}, "p2"); err != nil {
		t.Fatalf("Send failed: %+v", err)
	}
	if m, _, err := receiveWithin(t, p2, time.Second); err != nil || m.Slot != 7 {
		t.Errorf("\n after Reconnect \ngot = %s %v, \nwanted = slot 7", m, err)
	}
}

func TestNetwork_SetFilter(t *testing.T) {
	nw := NewNetwork()
	p1 := nw.AddNode("p1")
	p2 := nw.AddNode("p2")
	nw.SetFilter(func(from, to string, m protocol.Message) bool {
		return m.Kind != protocol.KindAck
	})

	p1.Send(protocol.Message{Kind: protocol.KindAck, Slot: 1}, "p2")    // nolint: errcheck
	p1.Send(protocol.Message{Kind: protocol.KindReject, Slot: 2}, "p2") // nolint: errcheck
	m, _, err := receiveWithin(t, p2, time.Second)
	if err != nil || m.Kind != protocol.KindReject {
		t.Errorf("\ngot = %s %v, \nwanted = REJECT", m, err)
	}

	nw.SetFilter(nil)
	p1.Send(protocol.Message{Kind: protocol.KindAck, Slot: 3}, "p2") // nolint: errcheck
	if m, _, err := receiveWithin(t, p2, time.Second); err != nil || m.Kind != protocol.KindAck {
		t.Errorf("\n after removing the filter \ngot = %s %v, \nwanted = ACK", m, err)
	}
}

func TestInmemTransport_Close(t *testing.T) {
	nw := NewNetwork()
	p1 := nw.AddNode("p1")
	nw.AddNode("p2")

	errCh := make(chan error, 1)
	go func() {
		_, _, err := p1.Receive(context.Background())
		errCh <- err
	}()
	time.Sleep(10 * time.Millisecond)
	if err := p1.Close(); err != nil {
		t.Fatalf("Close failed: %+v", err)
	}
	select {
	case err := <-errCh:
		if err != ErrClosed {
			t.Errorf("\ngot = %v, \nwanted = %v", err, ErrClosed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Receive did not unblock on Close")
	}
	if err := p1.Close(); err != nil {
		t.Errorf("second Close failed: %+v", err)
	}
	if err := p1.Send(protocol.Message{}, "p2"); err != ErrClosed {
		t.Errorf("\ngot = %v, \nwanted = %v", err, ErrClosed)
	}
}
