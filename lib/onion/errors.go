package onion

import (
	"errors"

	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/samber/oops"
)

var (
	// ErrProtocolBreach means a collaborator answered with an unexpected
	// message. It aborts the current dialogue only.
	ErrProtocolBreach = errors.New("protocol breach")
	// ErrChannelDisconnected means the dialogue can no longer talk to the
	// bridge, usually because the node is shutting down.
	ErrChannelDisconnected = errors.New("channel disconnected")
	// ErrNotRunning is returned by Stop before Start.
	ErrNotRunning = errors.New("dispatcher not running")
)

func breach(expected string, got wire.Message) error {
	return oops.
		In("onion").
		Code("protocol_breach").
		Wrapf(ErrProtocolBreach, "expected %s, got %s", expected, wire.Name(got))
}
