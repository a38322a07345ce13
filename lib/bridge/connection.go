package bridge

import (
	"context"
	"io"
	"net"
	"net/netip"
	"time"

	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// MaxDatagramSize is the receive buffer of a relayed connection.
const MaxDatagramSize = 64 * 1024

// Kind tells how a Connection reaches its peer.
type Kind uint8

const (
	// KindDirect is a TCP stream to the entry hop.
	KindDirect Kind = iota
	// KindRelayed is a UDP association through the entry hop.
	KindRelayed
)

func (k Kind) String() string {
	if k == KindRelayed {
		return "relayed"
	}
	return "direct"
}

// Connection is a request/response channel to a remote relay.
type Connection interface {
	Send(m wire.Message) error
	Receive() (wire.Message, error)
	Close() error
	Kind() Kind
	RemoteAddr() netip.AddrPort
}

// Dialer creates connections to remote relays.
type Dialer interface {
	Dial(ctx context.Context, kind Kind, addr netip.AddrPort) (Connection, error)
}

// NetDialer dials real sockets.
type NetDialer struct {
	Timeout     time.Duration
	ReadTimeout time.Duration
}

// Dial implements Dialer. Direct connections are opened lazily by the first
// Send; relayed connections are associated immediately.
func (d NetDialer) Dial(ctx context.Context, kind Kind, addr netip.AddrPort) (Connection, error) {
	switch kind {
	case KindDirect:
		return &tcpConnection{addr: addr, timeout: d.Timeout, readTimeout: d.ReadTimeout, ctx: ctx}, nil
	case KindRelayed:
		var nd net.Dialer
		nd.Timeout = d.Timeout
		conn, err := nd.DialContext(ctx, "udp", addr.String())
		if err != nil {
			return nil, oops.Wrapf(err, "associating relayed connection to %s", addr)
		}
		return &udpConnection{ctx: ctx, conn: conn, addr: addr, readTimeout: d.ReadTimeout}, nil
	default:
		return nil, oops.Errorf("unknown connection kind %d", kind)
	}
}

// tcpConnection carries one exchange per stream: Send writes and half-closes,
// Receive reads to EOF and closes. The next Send opens a new stream.
type tcpConnection struct {
	ctx         context.Context
	addr        netip.AddrPort
	timeout     time.Duration
	readTimeout time.Duration
	conn        *net.TCPConn
}

func (c *tcpConnection) Kind() Kind                 { return KindDirect }
func (c *tcpConnection) RemoteAddr() netip.AddrPort { return c.addr }

func (c *tcpConnection) Send(m wire.Message) error {
	b, err := wire.Encode(m)
	if err != nil {
		return err
	}
	c.reset()

	nd := net.Dialer{Timeout: c.timeout}
	conn, err := nd.DialContext(c.ctx, "tcp", c.addr.String())
	if err != nil {
		return oops.Wrapf(err, "connecting to %s", c.addr)
	}
	c.conn = conn.(*net.TCPConn)

	if _, err := c.conn.Write(b); err != nil {
		c.reset()
		return oops.Wrapf(err, "writing %s to %s", wire.Name(m), c.addr)
	}
	if err := c.conn.CloseWrite(); err != nil {
		c.reset()
		return oops.Wrapf(err, "half-closing stream to %s", c.addr)
	}
	log.WithFields(logger.Fields{
		"at":       "bridge.tcpConnection.Send",
		"peer":     c.addr.String(),
		"msg_type": wire.Name(m),
	}).Debug("sent_to_peer")
	return nil
}

func (c *tcpConnection) Receive() (wire.Message, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	defer c.reset()
	return readMessage(c.ctx, c.conn, c.readTimeout)
}

func (c *tcpConnection) Close() error {
	c.reset()
	return nil
}

func (c *tcpConnection) reset() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// udpConnection carries one message per datagram.
type udpConnection struct {
	ctx         context.Context
	conn        net.Conn
	addr        netip.AddrPort
	readTimeout time.Duration
}

func (c *udpConnection) Kind() Kind                 { return KindRelayed }
func (c *udpConnection) RemoteAddr() netip.AddrPort { return c.addr }

func (c *udpConnection) Send(m wire.Message) error {
	b, err := wire.Encode(m)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(b); err != nil {
		return oops.Wrapf(err, "sending datagram to %s", c.addr)
	}
	return nil
}

func (c *udpConnection) Receive() (wire.Message, error) {
	if c.readTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	stop := context.AfterFunc(c.ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	defer stop()

	buf := make([]byte, MaxDatagramSize)
	n, err := c.conn.Read(buf)
	if err != nil && err != io.EOF {
		if c.ctx.Err() != nil {
			return nil, oops.Wrapf(c.ctx.Err(), "reading datagram from %s interrupted", c.addr)
		}
		return nil, oops.Wrapf(err, "reading datagram from %s failed", c.addr)
	}
	m, err := wire.Decode(buf[:n])
	if err != nil {
		return nil, oops.Wrapf(err, "decoding datagram from %s", c.addr)
	}
	return m, nil
}

func (c *udpConnection) Close() error {
	return c.conn.Close()
}
