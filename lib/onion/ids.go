package onion

import "sync/atomic"

// IDAllocator hands out tunnel and request ids. Ids start at zero and wrap
// around after 2^32 allocations; by then earlier tunnels and requests are
// expected to be gone.
type IDAllocator struct {
	tunnel  atomic.Uint32
	request atomic.Uint32
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

func (a *IDAllocator) NextTunnelID() uint32 {
	return a.tunnel.Add(1) - 1
}

func (a *IDAllocator) NextRequestID() uint32 {
	return a.request.Add(1) - 1
}
