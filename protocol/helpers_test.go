package protocol

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
)

type sentMessage struct {
	m  Message
	to string
}

// recordingTransport remembers everything sent through it and never receives anything.
type recordingTransport struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (r *recordingTransport) Send(m Message, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{m: m, to: to})
	return nil
}

func (r *recordingTransport) Receive(ctx context.Context) (Message, string, error) {
	<-ctx.Done()
	return Message{}, "", ctx.Err()
}

func (r *recordingTransport) Close() error { return nil }

// take returns and forgets what was sent so far.
func (r *recordingTransport) take() []sentMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sent
	r.sent = nil
	return s
}

type checkpointRecorder struct {
	mu  sync.Mutex
	got []Checkpoint
}

func (c *checkpointRecorder) hook(cp Checkpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, cp)
}

func (c *checkpointRecorder) take() []Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.got
	c.got = nil
	return g
}

// newTestNode builds p1 of the group p1,p2,p3 without starting its goroutines.
func newTestNode(t *testing.T) (*Node, *recordingTransport, *checkpointRecorder) {
	t.Helper()
	trans := &recordingTransport{}
	cps := &checkpointRecorder{}
	n, err := newNode("p1", []string{"p1", "p2", "p3"}, trans, Config{
		Logger:    log.New(io.Discard, "", 0),
		FailCheck: cps.hook,
	})
	if err != nil {
		t.Fatalf("newNode failed: %+v", err)
	}
	t.Cleanup(n.cancel)
	return n, trans, cps
}
