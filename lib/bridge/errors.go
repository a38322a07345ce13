package bridge

import (
	"errors"

	"github.com/samber/oops"
)

var (
	// ErrSocketSetup is returned by Start when a listening socket cannot be
	// bound.
	ErrSocketSetup = errors.New("socket setup failed")
	// ErrWrongOrigin is logged when a non API message reaches the API writer.
	ErrWrongOrigin = errors.New("outbound message does not originate from the API")
	// ErrNotConnected is returned by Connection.Receive before any Send.
	ErrNotConnected = errors.New("connection has no pending exchange")
	// ErrAlreadyRunning is returned by Start on a running worker.
	ErrAlreadyRunning = errors.New("worker already running")
)

func socketSetup(err error, addr string) error {
	return oops.
		In("bridge").
		Code("socket_setup").
		With("address", addr).
		Wrapf(errors.Join(ErrSocketSetup, err), "binding %s", addr)
}
