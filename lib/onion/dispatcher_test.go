package onion

import (
	"io"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/go-i2p/go-onion/lib/bridge"
	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuild() wire.OnionTunnelBuild {
	return wire.OnionTunnelBuild{
		OnionTunnel: 1,
		Addr:        netip.MustParseAddr("192.0.2.10"),
		Hostkey:     []byte("destination"),
	}
}

func TestDialogueReachesTunnelReady(t *testing.T) {
	e := newTestEnv(t, Config{MinHopCount: 2}, nil)
	e.send(testBuild())

	ready := waitFor[wire.OnionTunnelReady](t, e)
	assert.Equal(t, []byte("destination"), ready.Payload)

	starts := seenOf[wire.AuthSessionStart](e)
	require.Len(t, starts, 2)
	assert.NotEqual(t, starts[0].RequestID, starts[1].RequestID)
	assert.Equal(t, testPeer(1).Hostkey, starts[0].Hostkey)
	assert.Equal(t, testPeer(2).Hostkey, starts[1].Hostkey)

	// phase two reuses the hop's request id
	hs2 := seenOf[wire.AuthSessionIncomingHS2](e)
	require.Len(t, hs2, 2)
	assert.Equal(t, starts[0].RequestID, hs2[0].RequestID)
	assert.Equal(t, starts[1].RequestID, hs2[1].RequestID)
	assert.Equal(t, []byte("hs2"), hs2[0].Payload)
	assert.NotEqual(t, hs2[0].SessionID, hs2[1].SessionID)

	assert.Len(t, seenOf[wire.RpsQuery](e), 2)

	conns := e.dialer.dialed()
	require.Len(t, conns, 2)
	assert.Equal(t, bridge.KindDirect, conns[0].Kind())
	assert.Equal(t, testPeer(1).AddrPort(), conns[0].RemoteAddr())
	// the second hop is reached through the entry hop
	assert.Equal(t, bridge.KindRelayed, conns[1].Kind())
	assert.Equal(t, testPeer(1).AddrPort(), conns[1].RemoteAddr())

	for _, c := range conns {
		msgs := c.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, wire.P2PMessage{MessageType: wire.P2PHandshake, Data: []byte("hs1")}, msgs[0])
	}
}

func TestTunnelDataIsLayerEncrypted(t *testing.T) {
	e := newTestEnv(t, Config{MinHopCount: 3}, nil)
	e.send(testBuild())
	ready := waitFor[wire.OnionTunnelReady](t, e)

	e.send(wire.OnionTunnelData{TunnelID: ready.TunnelID, Payload: []byte("hello")})

	entry := e.dialer.dialed()[0]
	require.Eventually(t, func() bool { return len(entry.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, wire.P2PMessage{MessageType: wire.P2PData, Data: []byte("helloxxx")}, entry.messages()[1])

	encs := seenOf[wire.AuthCipherEncrypt](e)
	require.Len(t, encs, 3)
	assert.Equal(t, []bool{true, false, false}, []bool{encs[0].Cleartext, encs[1].Cleartext, encs[2].Cleartext})
	hs := seenOf[wire.AuthSessionIncomingHS2](e)
	for _, enc := range encs {
		assert.Equal(t, hs[0].SessionID, enc.SessionID)
	}
}

func TestCoverTraffic(t *testing.T) {
	e := newTestEnv(t, Config{MinHopCount: 1}, nil)
	e.send(testBuild())
	waitFor[wire.OnionTunnelReady](t, e)

	e.send(wire.OnionCover{CoverSize: 32})

	entry := e.dialer.dialed()[0]
	require.Eventually(t, func() bool { return len(entry.messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	p := entry.messages()[1].(wire.P2PMessage)
	assert.Equal(t, wire.P2PData, p.MessageType)
	assert.Len(t, p.Data, 32)
	assert.Empty(t, seenOf[wire.AuthCipherEncrypt](e))
}

func TestDataBurstThenDestroy(t *testing.T) {
	// the burst is larger than the dialogue backlog threshold
	e := newTestEnv(t, Config{MinHopCount: 1, ChannelSize: 4}, nil)
	e.send(testBuild())
	ready := waitFor[wire.OnionTunnelReady](t, e)

	const burst = 20
	for i := 0; i < burst; i++ {
		e.send(wire.OnionTunnelData{TunnelID: ready.TunnelID, Payload: []byte{byte(i)}})
	}
	e.send(wire.OnionTunnelDestroy{TunnelID: ready.TunnelID})

	waitFor[wire.AuthSessionClose](t, e)
	require.Eventually(t, func() bool {
		_, ok := e.d.routes.tunnel(ready.TunnelID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	assert.Len(t, seenOf[wire.AuthCipherEncrypt](e), burst)
	msgs := e.dialer.dialed()[0].messages()
	require.Len(t, msgs, burst+1)
	for i, m := range msgs[1:] {
		assert.Equal(t, wire.P2PMessage{MessageType: wire.P2PData, Data: []byte{byte(i), 'x'}}, m)
	}
	assert.Empty(t, seenOf[wire.OnionError](e))
}

func TestTunnelDestroyClosesSessions(t *testing.T) {
	e := newTestEnv(t, Config{MinHopCount: 2}, nil)
	e.send(testBuild())
	ready := waitFor[wire.OnionTunnelReady](t, e)

	e.send(wire.OnionTunnelDestroy{TunnelID: ready.TunnelID})
	waitFor[wire.AuthSessionClose](t, e)
	waitFor[wire.AuthSessionClose](t, e)

	require.Eventually(t, func() bool {
		_, ok := e.d.routes.tunnel(ready.TunnelID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, seenOf[wire.OnionError](e))
	require.Eventually(t, func() bool {
		for _, c := range e.dialer.dialed() {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBreachWhileActiveReportsError(t *testing.T) {
	e := newTestEnv(t, Config{MinHopCount: 1}, nil)
	e.send(testBuild())
	ready := waitFor[wire.OnionTunnelReady](t, e)

	box, ok := e.d.routes.tunnel(ready.TunnelID)
	require.True(t, ok)
	box.put(wire.RpsQuery{})

	onionErr := waitFor[wire.OnionError](t, e)
	assert.Equal(t, wire.MessageIDOnionTunnelData, onionErr.RequestType)
	assert.Equal(t, ready.TunnelID, onionErr.TunnelID)
}

func TestDialogueIsolation(t *testing.T) {
	// the first sampled peer makes its session start fail
	e := newTestEnv(t, Config{MinHopCount: 1}, testPeer(1).Hostkey)
	e.send(testBuild())
	e.send(testBuild())

	ready := waitFor[wire.OnionTunnelReady](t, e)
	assert.Equal(t, []byte("destination"), ready.Payload)

	require.Eventually(t, func() bool { return len(seenOf[wire.OnionError](e)) == 1 }, 2*time.Second, 10*time.Millisecond)
	onionErr := seenOf[wire.OnionError](e)[0]
	assert.Equal(t, wire.MessageIDOnionTunnelBuild, onionErr.RequestType)
	assert.Len(t, seenOf[wire.OnionTunnelReady](e), 1)
}

func TestUnroutableMessagesAreDropped(t *testing.T) {
	e := newTestEnv(t, Config{MinHopCount: 1}, nil)

	e.send(wire.AuthSessionHS1{SessionID: 1, RequestID: 12345})
	e.send(wire.OnionTunnelData{TunnelID: 99, Payload: []byte("x")})
	e.send(testPeer(7))

	// the dispatcher is still serving
	e.send(testBuild())
	waitFor[wire.OnionTunnelReady](t, e)
}

func TestStopWithoutStart(t *testing.T) {
	d := NewDispatcher(Config{}, nil, &fakeDialer{}, nil, nil)
	assert.ErrorIs(t, d.Stop(), ErrNotRunning)
	assert.Equal(t, 1, d.cfg.MinHopCount)
	assert.Equal(t, DefaultChannelSize, d.cfg.ChannelSize)
}

func TestStopWhileReceivingFromPeer(t *testing.T) {
	// a relay that reads the handshake and never answers
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	read := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = io.ReadAll(conn)
		read <- conn
	}()

	addr := netip.MustParseAddrPort(ln.Addr().String())
	silent := func(int) wire.RpsPeer {
		return wire.RpsPeer{Port: addr.Port(), Addr: addr.Addr(), Hostkey: []byte("silent")}
	}
	// no read timeout: only shutdown ends the wait
	e := startTestEnv(t, Config{MinHopCount: 1}, bridge.NetDialer{Timeout: time.Second}, silent, nil)
	e.send(testBuild())

	var conn net.Conn
	select {
	case conn = <-read:
		defer conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("handshake never reached the relay")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- e.d.Stop() }()
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a dialogue waited on a relay")
	}
	assert.Empty(t, seenOf[wire.OnionError](e))
}
