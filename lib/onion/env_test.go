package onion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/go-i2p/go-onion/lib/bridge"
	"github.com/go-i2p/go-onion/lib/wire"
)

// fakeConn answers every handshake and records what was sent through it.
type fakeConn struct {
	kind bridge.Kind
	addr netip.AddrPort

	mu     sync.Mutex
	sent   []wire.Message
	closed bool
}

func (c *fakeConn) Kind() bridge.Kind          { return c.kind }
func (c *fakeConn) RemoteAddr() netip.AddrPort { return c.addr }

func (c *fakeConn) Send(m wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return nil
}

func (c *fakeConn) Receive() (wire.Message, error) {
	return wire.P2PMessage{MessageType: wire.P2PHandshake, Data: []byte("hs2")}, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages() []wire.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]wire.Message(nil), c.sent...)
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, kind bridge.Kind, addr netip.AddrPort) (bridge.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeConn{kind: kind, addr: addr}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialed() []*fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeConn(nil), d.conns...)
}

// testPeer is the n-th relay handed out by the fake peer sampling service.
func testPeer(n int) wire.RpsPeer {
	return wire.RpsPeer{
		Port:    uint16(9000 + n),
		Addr:    netip.MustParseAddr(fmt.Sprintf("10.0.0.%d", n)),
		Hostkey: []byte{byte(n)},
	}
}

// testEnv wires a Dispatcher to fake Auth and peer sampling services that
// always succeed, unless a session start names failHostkey.
type testEnv struct {
	d        *Dispatcher
	dialer   *fakeDialer
	inbound  chan bridge.Inbound
	outbound chan bridge.Outbound
	notify   chan wire.Message

	failHostkey []byte
	peerFor     func(n int) wire.RpsPeer

	mu      sync.Mutex
	seen    []wire.Message
	queries int
	session uint16

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newTestEnv(t *testing.T, cfg Config, failHostkey []byte) *testEnv {
	t.Helper()
	return startTestEnv(t, cfg, &fakeDialer{}, testPeer, failHostkey)
}

// startTestEnv is newTestEnv with a chosen dialer and peer sampling.
func startTestEnv(t *testing.T, cfg Config, dialer bridge.Dialer, peerFor func(int) wire.RpsPeer, failHostkey []byte) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	e := &testEnv{
		inbound:     make(chan bridge.Inbound, 64),
		outbound:    make(chan bridge.Outbound, 64),
		notify:      make(chan wire.Message, 64),
		failHostkey: failHostkey,
		peerFor:     peerFor,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	if fd, ok := dialer.(*fakeDialer); ok {
		e.dialer = fd
	}
	e.d = NewDispatcher(cfg, NewIDAllocator(), dialer, e.inbound, e.outbound)
	e.d.Start(ctx)
	go e.serve()

	t.Cleanup(func() {
		if err := e.d.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
			t.Error(err)
		}
		cancel()
		<-e.done
	})
	return e
}

func (e *testEnv) serve() {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			return
		case out := <-e.outbound:
			e.handle(out.Message)
		}
	}
}

func (e *testEnv) reply(m wire.Message) {
	select {
	case e.inbound <- bridge.Inbound{Origin: bridge.OriginAPI, Message: m}:
	case <-e.ctx.Done():
	}
}

func (e *testEnv) handle(m wire.Message) {
	e.mu.Lock()
	e.seen = append(e.seen, m)
	e.mu.Unlock()

	switch m := m.(type) {
	case wire.RpsQuery:
		e.mu.Lock()
		e.queries++
		n := e.queries
		e.mu.Unlock()
		e.reply(e.peerFor(n))
	case wire.AuthSessionStart:
		if e.failHostkey != nil && bytes.Equal(m.Hostkey, e.failHostkey) {
			e.reply(wire.AuthSessionError{RequestID: m.RequestID})
			return
		}
		e.reply(wire.AuthSessionHS1{SessionID: e.nextSession(), RequestID: m.RequestID, Payload: []byte("hs1")})
	case wire.AuthSessionIncomingHS1:
		e.reply(wire.AuthSessionHS2{SessionID: e.nextSession(), RequestID: m.RequestID, Payload: []byte("hs2")})
	case wire.AuthCipherEncrypt:
		e.reply(wire.AuthCipherEncryptResp{RequestID: m.RequestID, Payload: append(append([]byte(nil), m.Payload...), 'x')})
	case wire.AuthCipherDecrypt:
		e.reply(wire.AuthCipherDecryptResp{RequestID: m.RequestID, Cleartext: true, Payload: m.Payload})
	default:
		e.notify <- m
	}
}

func (e *testEnv) nextSession() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session++
	return e.session
}

func (e *testEnv) send(m wire.Message) {
	e.inbound <- bridge.Inbound{Origin: bridge.OriginAPI, Message: m}
}

// waitFor returns the first notification of type T.
func waitFor[T wire.Message](t *testing.T, e *testEnv) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-e.notify:
			if v, ok := m.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// seenOf returns every outbound message of type T in send order.
func seenOf[T wire.Message](e *testEnv) []T {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []T
	for _, m := range e.seen {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
