package onion

import (
	"net"
	"net/netip"
	"sync"

	"github.com/go-i2p/go-onion/lib/bridge"
	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// remotePeer is what a responder remembers about a relay that handshaked
// with this node.
type remotePeer struct {
	sessionID uint16
	tunnelID  uint32
	announced bool
}

type peerTable struct {
	mu    sync.Mutex
	peers map[netip.Addr]*remotePeer
}

func newPeerTable() *peerTable {
	return &peerTable{peers: make(map[netip.Addr]*remotePeer)}
}

func (p *peerTable) setSession(host netip.Addr, session uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peers[host] = &remotePeer{sessionID: session}
}

func (p *peerTable) session(host netip.Addr) (uint16, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rp, ok := p.peers[host]
	if !ok {
		return 0, false
	}
	return rp.sessionID, true
}

// incomingTunnel returns the tunnel id for host, allocating one the first
// time. fresh reports whether the API has yet to be told about it.
func (p *peerTable) incomingTunnel(host netip.Addr, ids *IDAllocator) (id uint32, fresh bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rp, ok := p.peers[host]
	if !ok {
		rp = &remotePeer{}
		p.peers[host] = rp
	}
	if !rp.announced {
		rp.tunnelID = ids.NextTunnelID()
		rp.announced = true
		return rp.tunnelID, true
	}
	return rp.tunnelID, false
}

// responder answers one message from another relay.
type responder struct {
	*comm
	d  *Dispatcher
	in bridge.Inbound
}

func (r *responder) run() error {
	defer r.in.Close()

	p, ok := r.in.Message.(wire.P2PMessage)
	if !ok || r.in.Reply == nil {
		log.WithFields(logger.Fields{
			"at":       "onion.responder.run",
			"msg_type": wire.Name(r.in.Message),
			"reason":   "not part of protocol",
		}).Warn("discarding_message")
		return nil
	}
	host := hostOf(r.in.Reply.RemoteAddr())

	switch p.MessageType {
	case wire.P2PKnock:
		return r.in.Reply.Send(wire.NewP2PMessage(wire.P2PWhosThere))
	case wire.P2PHandshake:
		return r.handshake(host, p.Data)
	case wire.P2PData:
		return r.data(host, p.Data)
	default:
		log.WithFields(logger.Fields{
			"at":       "onion.responder.run",
			"msg_type": wire.Name(p),
			"remote":   host.String(),
			"reason":   "not part of protocol",
		}).Warn("discarding_message")
		return nil
	}
}

func (r *responder) handshake(host netip.Addr, hs1 []byte) error {
	reqID := r.d.ids.NextRequestID()
	m, err := r.exchange(reqID, wire.AuthSessionIncomingHS1{RequestID: reqID, Payload: hs1})
	if err != nil {
		return err
	}
	hs2, ok := m.(wire.AuthSessionHS2)
	if !ok || hs2.RequestID != reqID {
		return breach("AuthSessionHS2", m)
	}
	r.d.peers.setSession(host, hs2.SessionID)

	log.WithFields(logger.Fields{
		"at":      "onion.responder.handshake",
		"remote":  host.String(),
		"session": hs2.SessionID,
	}).Debug("session_established")

	if err := r.in.Reply.Send(wire.P2PMessage{MessageType: wire.P2PHandshake, Data: hs2.Payload}); err != nil {
		return oops.Wrapf(err, "answering handshake")
	}
	return nil
}

func (r *responder) data(host netip.Addr, onion []byte) error {
	session, ok := r.d.peers.session(host)
	if !ok {
		log.WithFields(logger.Fields{
			"at":     "onion.responder.data",
			"remote": host.String(),
			"reason": "no session with sender",
		}).Warn("discarding_message")
		return nil
	}

	reqID := r.d.ids.NextRequestID()
	m, err := r.exchange(reqID, wire.AuthCipherDecrypt{SessionID: session, RequestID: reqID, Payload: onion})
	if err != nil {
		return err
	}
	resp, ok := m.(wire.AuthCipherDecryptResp)
	if !ok || resp.RequestID != reqID {
		return breach("AuthCipherDecryptResp", m)
	}
	if !resp.Cleartext {
		log.WithFields(logger.Fields{
			"at":     "onion.responder.data",
			"remote": host.String(),
			"reason": "still encrypted, not for this node",
		}).Debug("discarding_onion")
		return nil
	}

	tunnelID, fresh := r.d.peers.incomingTunnel(host, r.d.ids)
	if fresh {
		if err := r.send(wire.OnionTunnelIncoming{TunnelID: tunnelID}); err != nil {
			return err
		}
	}
	return r.send(wire.OnionTunnelData{TunnelID: tunnelID, Payload: resp.Payload})
}

func hostOf(addr net.Addr) netip.Addr {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.AddrPort().Addr().Unmap()
	case *net.UDPAddr:
		return a.AddrPort().Addr().Unmap()
	}
	ap, err := netip.ParseAddrPort(addr.String())
	if err != nil {
		return netip.Addr{}
	}
	return ap.Addr().Unmap()
}
