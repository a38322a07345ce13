package onion

import (
	"context"
	"slices"
	"sync"

	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// inbox is a dialogue's private queue. put never blocks and never drops, so
// a slow dialogue cannot stall the dispatcher or lose a message it owns.
// Only the owning dialogue takes from it.
type inbox struct {
	mu    sync.Mutex
	queue []wire.Message
	ready chan struct{}

	// backlog is the queue length above which a warning is logged.
	backlog int
}

func newInbox(backlog int) *inbox {
	return &inbox{
		queue:   make([]wire.Message, 0, backlog),
		ready:   make(chan struct{}, 1),
		backlog: backlog,
	}
}

func (b *inbox) put(m wire.Message) {
	b.mu.Lock()
	b.queue = append(b.queue, m)
	n := len(b.queue)
	b.mu.Unlock()

	if n == b.backlog+1 {
		log.WithFields(logger.Fields{
			"at":       "onion.inbox.put",
			"msg_type": wire.Name(m),
			"queued":   n,
		}).Warn("dialogue_falling_behind")
	}
	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// take returns the oldest queued message, waiting until one arrives or ctx
// is done.
func (b *inbox) take(ctx context.Context) (wire.Message, error) {
	for {
		b.mu.Lock()
		if len(b.queue) > 0 {
			m := b.queue[0]
			b.queue[0] = nil
			b.queue = b.queue[1:]
			b.mu.Unlock()
			return m, nil
		}
		b.mu.Unlock()

		select {
		case <-b.ready:
		case <-ctx.Done():
			return nil, oops.Wrapf(ErrChannelDisconnected, "receiver gone")
		}
	}
}

func (b *inbox) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// routes maps routing keys to dialogue inboxes. Dialogues register a key
// before sending the request that provokes the response.
type routes struct {
	mu       sync.Mutex
	requests map[uint32]*inbox
	tunnels  map[uint32]*inbox
	peers    []*inbox
}

func newRoutes() *routes {
	return &routes{
		requests: make(map[uint32]*inbox),
		tunnels:  make(map[uint32]*inbox),
	}
}

func (r *routes) addRequest(id uint32, in *inbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[id] = in
}

func (r *routes) dropRequest(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, id)
}

func (r *routes) request(id uint32) (*inbox, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.requests[id]
	return in, ok
}

func (r *routes) addTunnel(id uint32, in *inbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tunnels[id] = in
}

func (r *routes) dropTunnel(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tunnels, id)
}

func (r *routes) tunnel(id uint32) (*inbox, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.tunnels[id]
	return in, ok
}

// activeTunnels returns one inbox per active tunnel.
func (r *routes) activeTunnels() []*inbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*inbox, 0, len(r.tunnels))
	for _, in := range r.tunnels {
		out = append(out, in)
	}
	return out
}

// awaitPeer queues in for the next peer sample.
func (r *routes) awaitPeer(in *inbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers = append(r.peers, in)
}

func (r *routes) cancelPeer(in *inbox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := slices.Index(r.peers, in); i >= 0 {
		r.peers = slices.Delete(r.peers, i, i+1)
	}
}

// nextPeer pops the dialogue that has waited longest for a peer sample.
func (r *routes) nextPeer() (*inbox, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.peers) == 0 {
		return nil, false
	}
	in := r.peers[0]
	r.peers = r.peers[1:]
	return in, true
}

// requestIDOf returns the request id of an Auth response.
func requestIDOf(m wire.Message) (uint32, bool) {
	switch m := m.(type) {
	case wire.AuthSessionHS1:
		return m.RequestID, true
	case wire.AuthSessionIncomingHS1:
		return m.RequestID, true
	case wire.AuthSessionHS2:
		return m.RequestID, true
	case wire.AuthSessionIncomingHS2:
		return m.RequestID, true
	case wire.AuthSessionError:
		return m.RequestID, true
	case wire.AuthCipherEncryptResp:
		return m.RequestID, true
	case wire.AuthCipherDecryptResp:
		return m.RequestID, true
	}
	return 0, false
}
