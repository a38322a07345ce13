package bridge

import (
	"context"
	"net"

	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// APIWorker listens on the control API socket and writes the node's outbound
// messages on its persistent stream. It is the only writer of that stream.
type APIWorker struct {
	*Worker

	peer     string
	outbound <-chan Outbound
	stream   net.Conn
}

// NewAPIWorker creates the control API worker listening on addr. Outbound
// messages are written to peer; an empty peer writes to addr itself.
func NewAPIWorker(addr, peer string, inbound chan<- Inbound, outbound <-chan Outbound, opts Options) *APIWorker {
	a := &APIWorker{
		Worker:   newWorker("api", OriginAPI, addr, inbound, opts),
		peer:     peer,
		outbound: outbound,
	}
	a.serve = a.serveConn
	a.tick = a.drain
	a.cleanup = a.closeStream
	return a
}

func (a *APIWorker) serveConn(conn *net.TCPConn) {
	defer conn.Close()

	if a.isOwnStream(conn) {
		log.WithFields(logger.Fields{
			"at":     "bridge.APIWorker.serveConn",
			"remote": conn.RemoteAddr().String(),
		}).Debug("ignoring_own_outbound_stream")
		return
	}

	m, err := readMessage(context.Background(), conn, a.opts.ReadTimeout)
	if err != nil {
		log.WithFields(logger.Fields{
			"at":     "bridge.APIWorker.serveConn",
			"reason": "skipping message",
		}).WithError(err).Error("failed_to_read_api_message")
		return
	}

	log.WithFields(logger.Fields{
		"at":       "bridge.APIWorker.serveConn",
		"msg_type": wire.Name(m),
	}).Debug("api_message_received")
	a.forward(Inbound{Origin: OriginAPI, Message: m})
}

func (a *APIWorker) isOwnStream(conn net.Conn) bool {
	return a.stream != nil && conn.RemoteAddr().String() == a.stream.LocalAddr().String()
}

// drain writes every queued outbound message without blocking on the channel.
func (a *APIWorker) drain() {
	for {
		select {
		case out, ok := <-a.outbound:
			if !ok {
				return
			}
			if err := a.write(out); err != nil {
				log.WithFields(logger.Fields{
					"at":       "bridge.APIWorker.drain",
					"msg_type": wire.Name(out.Message),
				}).WithError(err).Error("failed_to_write_api_message")
			}
		default:
			return
		}
	}
}

func (a *APIWorker) write(out Outbound) error {
	if out.Origin != OriginAPI {
		return oops.Wrapf(ErrWrongOrigin, "origin %s", out.Origin)
	}
	b, err := wire.Encode(out.Message)
	if err != nil {
		return err
	}
	if err := a.connect(); err != nil {
		return err
	}
	if _, err := a.stream.Write(b); err != nil {
		a.closeStream()
		return oops.Wrapf(err, "writing to API stream")
	}
	log.WithFields(logger.Fields{
		"at":       "bridge.APIWorker.write",
		"msg_type": wire.Name(out.Message),
		"size":     len(b),
	}).Debug("api_message_sent")
	return nil
}

// connect dials the persistent stream if it is not open. A failed write drops
// the stream so the next message redials.
func (a *APIWorker) connect() error {
	if a.stream != nil {
		return nil
	}
	target := a.peer
	if target == "" {
		target = a.Addr().String()
	}
	conn, err := net.DialTimeout("tcp", target, a.opts.DialTimeout)
	if err != nil {
		return oops.Wrapf(err, "connecting API stream to %s", target)
	}
	a.stream = conn
	log.WithFields(logger.Fields{
		"at":     "bridge.APIWorker.connect",
		"target": target,
	}).Info("api_stream_connected")
	return nil
}

func (a *APIWorker) closeStream() {
	if a.stream == nil {
		return
	}
	if err := a.stream.Close(); err != nil {
		log.WithError(err).Warn("error_closing_api_stream")
	}
	a.stream = nil
}
