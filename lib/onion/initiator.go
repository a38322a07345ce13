package onion

import (
	"errors"

	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/go-onion/lib/bridge"
	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// initiator builds a tunnel on behalf of the control API and relays its data.
type initiator struct {
	*comm
	d     *Dispatcher
	build wire.OnionTunnelBuild

	hops     []hop
	tunnelID uint32
	ready    bool
}

func (t *initiator) run() (err error) {
	defer func() { t.teardown(err) }()

	for k := 0; k < t.d.cfg.MinHopCount; k++ {
		peer, err := t.requestPeer()
		if err != nil {
			return oops.Wrapf(err, "sampling peer for hop %d", k)
		}
		h, err := t.connectToPeer(peer)
		if err != nil {
			return oops.Wrapf(err, "negotiating hop %d", k)
		}
		t.hops = append(t.hops, h)

		log.WithFields(logger.Fields{
			"at":      "onion.initiator.run",
			"hop":     k,
			"session": h.SessionID,
			"peer":    peer.AddrPort().String(),
			"hostkey": fingerprint(peer.Hostkey),
		}).Debug("hop_established")
	}

	t.tunnelID = t.d.ids.NextTunnelID()
	t.routes.addTunnel(t.tunnelID, t.inbox)
	t.ready = true
	if err := t.send(wire.OnionTunnelReady{TunnelID: t.tunnelID, Payload: t.build.Hostkey}); err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"at":          "onion.initiator.run",
		"tunnel_id":   t.tunnelID,
		"hops":        len(t.hops),
		"destination": fingerprint(t.build.Hostkey),
	}).Info("tunnel_ready")

	return t.active()
}

// connectToPeer runs both handshake phases with one relay. The whole hop uses
// a single request id.
func (t *initiator) connectToPeer(peer wire.RpsPeer) (hop, error) {
	reqID := t.d.ids.NextRequestID()
	t.routes.addRequest(reqID, t.inbox)
	defer t.routes.dropRequest(reqID)

	if err := t.send(wire.AuthSessionStart{RequestID: reqID, Hostkey: peer.Hostkey}); err != nil {
		return hop{}, err
	}

	conn, err := t.dial(peer)
	if err != nil {
		return hop{}, err
	}

	m, err := t.response()
	if err != nil {
		conn.Close()
		return hop{}, err
	}
	hs1, ok := m.(wire.AuthSessionHS1)
	if !ok || hs1.RequestID != reqID {
		conn.Close()
		return hop{}, breach("AuthSessionHS1", m)
	}

	hs2, err := t.handshake(conn, hs1.Payload)
	if err != nil {
		conn.Close()
		_ = t.send(wire.AuthSessionClose{SessionID: hs1.SessionID})
		return hop{}, err
	}

	if err := t.send(wire.AuthSessionIncomingHS2{
		SessionID: hs1.SessionID,
		RequestID: reqID,
		Payload:   hs2,
	}); err != nil {
		conn.Close()
		return hop{}, err
	}

	return hop{SessionID: hs1.SessionID, Peer: peer, Conn: conn}, nil
}

// dial reaches the entry hop directly and every later hop through the entry
// hop's address.
func (t *initiator) dial(peer wire.RpsPeer) (bridge.Connection, error) {
	kind, addr := bridge.KindDirect, peer.AddrPort()
	if len(t.hops) > 0 {
		kind, addr = bridge.KindRelayed, t.hops[0].Peer.AddrPort()
	}
	conn, err := t.d.dialer.Dial(t.ctx, kind, addr)
	if err != nil {
		return nil, oops.Wrapf(err, "creating %s connection to %s", kind, addr)
	}
	return conn, nil
}

// handshake sends the first handshake message to the relay and returns its
// answer.
func (t *initiator) handshake(conn bridge.Connection, hs1 []byte) ([]byte, error) {
	if err := conn.Send(wire.P2PMessage{MessageType: wire.P2PHandshake, Data: hs1}); err != nil {
		return nil, oops.Wrapf(err, "sending handshake")
	}
	m, err := conn.Receive()
	if err != nil {
		if t.ctx.Err() != nil {
			return nil, oops.Wrapf(ErrChannelDisconnected, "receiving handshake: %v", err)
		}
		return nil, oops.Wrapf(err, "receiving handshake")
	}
	p, ok := m.(wire.P2PMessage)
	if !ok || p.MessageType != wire.P2PHandshake {
		return nil, breach("P2PHandshake", m)
	}
	return p.Data, nil
}

func (t *initiator) active() error {
	for {
		m, err := t.next()
		if err != nil {
			return err
		}
		switch m := m.(type) {
		case wire.OnionTunnelData:
			data, err := encryptForAllPeers(t.comm, t.d.ids, t.hops, m.Payload)
			if err != nil {
				return oops.Wrapf(err, "encrypting tunnel data")
			}
			if err := t.forward(data); err != nil {
				return err
			}
		case wire.OnionCover:
			if err := t.cover(int(m.CoverSize)); err != nil {
				return err
			}
		case wire.OnionTunnelDestroy:
			log.WithFields(logger.Fields{
				"at":        "onion.initiator.active",
				"tunnel_id": t.tunnelID,
			}).Info("tunnel_destroyed")
			return nil
		default:
			return breach("OnionTunnelData or OnionTunnelDestroy", m)
		}
	}
}

// forward sends an onion through the entry hop.
func (t *initiator) forward(onion []byte) error {
	if err := t.hops[0].Conn.Send(wire.P2PMessage{MessageType: wire.P2PData, Data: onion}); err != nil {
		return oops.Wrapf(err, "forwarding to entry hop")
	}
	return nil
}

func (t *initiator) cover(size int) error {
	payload := make([]byte, size)
	if _, err := rand.Read(payload); err != nil {
		return oops.Wrapf(err, "generating cover traffic")
	}
	return t.forward(payload)
}

// teardown closes every session and reports a failed dialogue to the API.
func (t *initiator) teardown(err error) {
	if t.ready {
		t.routes.dropTunnel(t.tunnelID)
	}
	for _, h := range t.hops {
		_ = t.send(wire.AuthSessionClose{SessionID: h.SessionID})
		h.Conn.Close()
	}
	if err == nil || errors.Is(err, ErrChannelDisconnected) {
		return
	}

	requestType := wire.MessageIDOnionTunnelBuild
	if t.ready {
		requestType = wire.MessageIDOnionTunnelData
	}
	_ = t.send(wire.OnionError{RequestType: requestType, TunnelID: t.tunnelID})
}
