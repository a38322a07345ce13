package onion

import (
	"context"

	"github.com/go-i2p/go-onion/lib/bridge"
	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/samber/oops"
)

// comm is a dialogue's view of the bridge: its private inbox and the shared
// outbound channel.
type comm struct {
	ctx      context.Context
	inbox    *inbox
	outbound chan<- bridge.Outbound
	routes   *routes

	// deferred holds tunnel messages that arrived while an Auth or peer
	// response was awaited.
	deferred []wire.Message
}

func newComm(ctx context.Context, size int, outbound chan<- bridge.Outbound, r *routes) *comm {
	return &comm{
		ctx:      ctx,
		inbox:    newInbox(size),
		outbound: outbound,
		routes:   r,
	}
}

func (c *comm) send(m wire.Message) error {
	if c.ctx.Err() != nil {
		return oops.Wrapf(ErrChannelDisconnected, "sending %s", wire.Name(m))
	}
	select {
	case c.outbound <- bridge.ToAPI(m):
		return nil
	case <-c.ctx.Done():
		return oops.Wrapf(ErrChannelDisconnected, "sending %s", wire.Name(m))
	}
}

// receive blocks until the next message for this dialogue. There is no
// timeout; only shutdown ends the wait.
func (c *comm) receive() (wire.Message, error) {
	return c.inbox.take(c.ctx)
}

// next returns deferred tunnel messages before reading the inbox.
func (c *comm) next() (wire.Message, error) {
	if len(c.deferred) > 0 {
		m := c.deferred[0]
		c.deferred = c.deferred[1:]
		return m, nil
	}
	return c.receive()
}

// response waits for the answer to a request, setting tunnel messages aside.
func (c *comm) response() (wire.Message, error) {
	for {
		m, err := c.receive()
		if err != nil {
			return nil, err
		}
		switch m.(type) {
		case wire.OnionTunnelData, wire.OnionTunnelDestroy, wire.OnionCover:
			c.deferred = append(c.deferred, m)
		default:
			return m, nil
		}
	}
}

// exchange sends an Auth request carrying reqID and returns its response.
func (c *comm) exchange(reqID uint32, m wire.Message) (wire.Message, error) {
	c.routes.addRequest(reqID, c.inbox)
	defer c.routes.dropRequest(reqID)
	if err := c.send(m); err != nil {
		return nil, err
	}
	return c.response()
}

// requestPeer asks the peer sampling service for a candidate relay.
func (c *comm) requestPeer() (wire.RpsPeer, error) {
	c.routes.awaitPeer(c.inbox)
	if err := c.send(wire.RpsQuery{}); err != nil {
		c.routes.cancelPeer(c.inbox)
		return wire.RpsPeer{}, err
	}
	m, err := c.response()
	if err != nil {
		c.routes.cancelPeer(c.inbox)
		return wire.RpsPeer{}, err
	}
	peer, ok := m.(wire.RpsPeer)
	if !ok {
		c.routes.cancelPeer(c.inbox)
		return wire.RpsPeer{}, breach("RpsPeer", m)
	}
	return peer, nil
}
