package bridge

import (
	"context"
	"errors"
	"net"
	"os"
	"time"

	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/go-i2p/logger"
	"golang.org/x/time/rate"
)

// P2PWorker listens for messages from other relay nodes on the P2P port:
// streams over TCP from direct peers and datagrams over UDP from relayed
// ones. Every decoded message is forwarded with a Reply so the orchestrator
// can answer.
type P2PWorker struct {
	*Worker

	limiter *rate.Limiter
	udp     *net.UDPConn
}

// NewP2PWorker creates the P2P worker listening on addr. A nil limiter accepts
// every connection and datagram.
func NewP2PWorker(addr string, inbound chan<- Inbound, limiter *rate.Limiter, opts Options) *P2PWorker {
	p := &P2PWorker{
		Worker:  newWorker("p2p", OriginP2P, addr, inbound, opts),
		limiter: limiter,
	}
	p.serve = p.serveConn
	p.bindExtra = p.bindDatagrams
	return p
}

func (p *P2PWorker) allow(remote string) bool {
	if p.limiter == nil || p.limiter.Allow() {
		return true
	}
	log.WithFields(logger.Fields{
		"at":     "bridge.P2PWorker.allow",
		"remote": remote,
		"reason": "accept rate exceeded",
	}).Warn("rejecting_p2p_message")
	return false
}

func (p *P2PWorker) serveConn(conn *net.TCPConn) {
	if !p.allow(conn.RemoteAddr().String()) {
		conn.Close()
		return
	}

	m, err := readMessage(context.Background(), conn, p.opts.ReadTimeout)
	if err != nil {
		log.WithFields(logger.Fields{
			"at":     "bridge.P2PWorker.serveConn",
			"remote": conn.RemoteAddr().String(),
			"reason": "skipping message",
		}).WithError(err).Error("failed_to_read_p2p_message")
		conn.Close()
		return
	}

	log.WithFields(logger.Fields{
		"at":       "bridge.P2PWorker.serveConn",
		"remote":   conn.RemoteAddr().String(),
		"msg_type": wire.Name(m),
	}).Debug("p2p_message_received")
	p.forward(Inbound{
		Origin:  OriginP2P,
		Message: m,
		Reply:   newStreamReply(conn, p.opts.ReadTimeout),
	})
}

// bindDatagrams opens the UDP socket on the same address and port as the
// TCP listener.
func (p *P2PWorker) bindDatagrams(addr *net.TCPAddr) ([]func(), error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: addr.IP, Port: addr.Port, Zone: addr.Zone})
	if err != nil {
		return nil, err
	}
	p.udp = conn
	return []func(){p.serveDatagrams}, nil
}

// serveDatagrams reads one message per datagram until the worker stops.
func (p *P2PWorker) serveDatagrams() {
	defer p.udp.Close()
	buf := make([]byte, MaxDatagramSize)

	for !p.stop.Load() {
		_ = p.udp.SetReadDeadline(time.Now().Add(p.opts.PollInterval))
		n, from, err := p.udp.ReadFromUDPAddrPort(buf)
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) && !p.stop.Load() {
				log.WithFields(logger.Fields{
					"at":     "bridge.P2PWorker.serveDatagrams",
					"worker": p.name,
				}).WithError(err).Error("failed_to_read_datagram")
			}
			continue
		}
		if !p.allow(from.String()) {
			continue
		}

		m, err := wire.Decode(append([]byte(nil), buf[:n]...))
		if err != nil {
			log.WithFields(logger.Fields{
				"at":     "bridge.P2PWorker.serveDatagrams",
				"remote": from.String(),
				"reason": "skipping message",
			}).WithError(err).Error("failed_to_decode_datagram")
			continue
		}

		log.WithFields(logger.Fields{
			"at":       "bridge.P2PWorker.serveDatagrams",
			"remote":   from.String(),
			"msg_type": wire.Name(m),
		}).Debug("p2p_datagram_received")
		p.forward(Inbound{
			Origin:  OriginP2P,
			Message: m,
			Reply:   newDatagramReply(p.udp, from),
		})
	}
}
