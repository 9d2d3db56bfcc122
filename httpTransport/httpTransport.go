/*
Package httpTransport provides an implementation of ordo's Transport interface
that uses net/http to carry messages between members running in different processes.

Every message is POSTed as JSON to the receiving member's MessageURI. The receiving
side is an http.Handler that puts the message in an inbox, from which Receive reads.
*/
package httpTransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/komuw/ordo/protocol"
)

const (
	// MessageURI is the path a member serves inbound messages on.
	MessageURI = "/message"

	defaultInboxSize = 4096
	sendTimeout      = 3 * time.Second
)

var (
	// ErrClosed is returned by a transport that has been closed.
	ErrClosed = errors.New("httpTransport: closed")
	// ErrUnknownPeer is returned when sending to a member with no known address.
	ErrUnknownPeer = errors.New("httpTransport: unknown peer")
)

// Envelope is what goes over the wire.
type Envelope struct {
	From    string           `json:"from"`
	Message protocol.Message `json:"message"`
}

// HTTPtransport provides a http based transport that can be
// used to communicate with ordo members on remote machines.
type HTTPtransport struct {
	id     string
	client *http.Client
	logger *log.Logger

	mu    sync.RWMutex
	peers map[string]string // member ID -> base URL, eg http://127.0.0.1:15001

	inbox     chan Envelope
	closed    chan struct{}
	closeOnce sync.Once
	server    *http.Server
	sends     sync.WaitGroup

	// ctx is cancelled by Close and aborts POSTs still in flight.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a transport for member id. peers maps every member, including id
// itself, to the base URL it serves on.
func New(id string, peers map[string]string, logger *log.Logger) *HTTPtransport {
	if logger == nil {
		logger = log.New(os.Stderr, "httpTransport: ", log.LstdFlags)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := make(map[string]string, len(peers))
	for k, v := range peers {
		p[k] = v
	}
	return &HTTPtransport{
		id:     id,
		client: &http.Client{Timeout: sendTimeout},
		logger: logger,
		peers:  p,
		inbox:  make(chan Envelope, defaultInboxSize),
		closed: make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddPeer sets the base URL of member id.
func (ht *HTTPtransport) AddPeer(id, baseURL string) {
	ht.mu.Lock()
	defer ht.mu.Unlock()
	ht.peers[id] = baseURL
}

func (ht *HTTPtransport) peer(id string) (string, bool) {
	ht.mu.RLock()
	defer ht.mu.RUnlock()
	u, ok := ht.peers[id]
	return u, ok
}

// Send implements the protocol.Transport interface.
// Messages to self skip the network. Messages to other members are POSTed
// in the background; a failed POST is logged and counts as a lost message.
func (ht *HTTPtransport) Send(m protocol.Message, to string) error {
	select {
	case <-ht.closed:
		return ErrClosed
	default:
	}
	if to == ht.id {
		ht.enqueue(Envelope{From: ht.id, Message: m})
		return nil
	}
	baseURL, ok := ht.peer(to)
	if !ok {
		return errors.Wrapf(ErrUnknownPeer, "member:%v", to)
	}
	body, err := json.Marshal(Envelope{From: ht.id, Message: m})
	if err != nil {
		return errors.Wrapf(err, "unable to encode %s", m)
	}

	// Add must not race with the Wait in Close.
	ht.mu.RLock()
	select {
	case <-ht.closed:
		ht.mu.RUnlock()
		return ErrClosed
	default:
	}
	ht.sends.Add(1)
	ht.mu.RUnlock()

	go func() {
		defer ht.sends.Done()
		if err := ht.post(baseURL+MessageURI, body); err != nil && ht.ctx.Err() == nil {
			ht.logger.Printf("[%s] send %s to:%v failed: %v", ht.id, m, to, err)
		}
	}()
	return nil
}

func (ht *HTTPtransport) post(url string, body []byte) error {
	req, err := http.NewRequestWithContext(ht.ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ht.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint: errcheck
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("url:%v returned http status:%v instead of status:%v", url, resp.StatusCode, http.StatusAccepted)
	}
	return nil
}

// Receive implements the protocol.Transport interface.
func (ht *HTTPtransport) Receive(ctx context.Context) (protocol.Message, string, error) {
	select {
	case e := <-ht.inbox:
		return e.Message, e.From, nil
	case <-ctx.Done():
		return protocol.Message{}, "", ctx.Err()
	case <-ht.closed:
		return protocol.Message{}, "", ErrClosed
	}
}

// ServeHTTP accepts messages POSTed by other members.
func (ht *HTTPtransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != MessageURI {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method must be POST", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close() // nolint: errcheck

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	e := Envelope{}
	if err := json.Unmarshal(body, &e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	select {
	case <-ht.closed:
		http.Error(w, ErrClosed.Error(), http.StatusServiceUnavailable)
		return
	default:
	}
	ht.enqueue(e)
	w.WriteHeader(http.StatusAccepted)
}

// enqueue drops the message when the inbox is full; the protocol tolerates loss.
func (ht *HTTPtransport) enqueue(e Envelope) {
	select {
	case ht.inbox <- e:
	default:
		ht.logger.Printf("[%s] inbox full, dropping %s from:%v", ht.id, e.Message, e.From)
	}
}

// ListenAndServe serves inbound messages on addr until Close is called.
// mux may carry the application's own handlers; MessageURI is added to it.
// A nil mux serves MessageURI only.
func (ht *HTTPtransport) ListenAndServe(addr string, mux *http.ServeMux) error {
	if mux == nil {
		mux = http.NewServeMux()
	}
	mux.Handle(MessageURI, ht)

	ht.mu.Lock()
	select {
	case <-ht.closed:
		ht.mu.Unlock()
		return ErrClosed
	default:
	}
	ht.server = &http.Server{Addr: addr, Handler: mux}
	srv := ht.server
	ht.mu.Unlock()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrapf(err, "unable to serve member:%v on addr:%v", ht.id, addr)
}

// Close implements the protocol.Transport interface.
func (ht *HTTPtransport) Close() error {
	var err error
	ht.closeOnce.Do(func() {
		ht.mu.Lock()
		close(ht.closed)
		srv := ht.server
		ht.mu.Unlock()
		ht.cancel()
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			err = srv.Shutdown(ctx)
		}
		ht.sends.Wait()
	})
	return err
}
