package bridge

import (
	"context"
	"io"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/samber/oops"
)

// Origin tags which socket a message came from or must go to.
type Origin uint8

const (
	OriginAPI Origin = iota
	OriginP2P
)

func (o Origin) String() string {
	switch o {
	case OriginAPI:
		return "api"
	case OriginP2P:
		return "p2p"
	default:
		return "unknown"
	}
}

// Inbound is a decoded message together with the socket it arrived on.
// Reply is set for P2P messages only; consumers must call Close once they are
// done with it.
type Inbound struct {
	Origin  Origin
	Message wire.Message
	Reply   *Reply
}

// Close releases the reply stream, if any.
func (in Inbound) Close() {
	if in.Reply != nil {
		_ = in.Reply.Close()
	}
}

// Outbound is a message queued for the control API writer.
type Outbound struct {
	Origin  Origin
	Message wire.Message
}

// ToAPI wraps m for the API writer.
func ToAPI(m wire.Message) Outbound {
	return Outbound{Origin: OriginAPI, Message: m}
}

// Reply is the way back to the relay that sent an inbound P2P message: the
// still open stream for TCP, or the sender's address for a datagram. One
// answer may be sent.
type Reply struct {
	remote net.Addr
	write  func([]byte) error
	close  func() error
	once   sync.Once
}

// newStreamReply answers on the stream the message arrived on. The remote
// side has finished writing.
func newStreamReply(conn net.Conn, timeout time.Duration) *Reply {
	return &Reply{
		remote: conn.RemoteAddr(),
		write: func(b []byte) error {
			if timeout > 0 {
				_ = conn.SetWriteDeadline(time.Now().Add(timeout))
			}
			_, err := conn.Write(b)
			return err
		},
		close: conn.Close,
	}
}

// newDatagramReply answers with one datagram from the listening socket.
func newDatagramReply(conn *net.UDPConn, to netip.AddrPort) *Reply {
	return &Reply{
		remote: net.UDPAddrFromAddrPort(to),
		write: func(b []byte) error {
			_, err := conn.WriteToUDPAddrPort(b, to)
			return err
		},
		close: func() error { return nil },
	}
}

// RemoteAddr is the address of the relay that sent the message.
func (r *Reply) RemoteAddr() net.Addr {
	return r.remote
}

// Send writes m as the single answer and releases the reply.
func (r *Reply) Send(m wire.Message) error {
	defer r.Close()
	b, err := wire.Encode(m)
	if err != nil {
		return oops.Wrapf(err, "encoding reply %s", wire.Name(m))
	}
	if err := r.write(b); err != nil {
		return oops.Wrapf(err, "writing reply to %s", r.remote)
	}
	return nil
}

// Close releases the reply. It is safe to call more than once.
func (r *Reply) Close() error {
	var err error
	r.once.Do(func() { err = r.close() })
	return err
}

// readMessage reads conn to completion and decodes the bytes. A done ctx
// interrupts the read.
func readMessage(ctx context.Context, conn net.Conn, timeout time.Duration) (wire.Message, error) {
	if timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		defer conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	b, err := io.ReadAll(conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, oops.Wrapf(ctx.Err(), "reading stream from %s interrupted", conn.RemoteAddr())
		}
		return nil, oops.Wrapf(err, "reading stream from %s failed", conn.RemoteAddr())
	}
	m, err := wire.Decode(b)
	if err != nil {
		return nil, oops.Wrapf(err, "decoding %d bytes from %s", len(b), conn.RemoteAddr())
	}
	return m, nil
}
