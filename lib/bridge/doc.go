// Package bridge moves protocol messages between sockets and the tunnel
// orchestrator.
//
// A node owns two listening sockets. The control API socket receives requests
// from the local application and the Auth and peer sampling services, and the
// API worker also owns the single persistent outbound stream that carries the
// node's own requests back to them. The P2P socket receives messages from
// other relay nodes.
//
// Every worker runs one goroutine. The goroutine waits for a connection for at
// most PollInterval, reads it to completion, decodes it with package wire and
// pushes the result, tagged with its Origin, onto the shared inbound channel.
// A stop flag is checked between cycles, so Stop returns within one poll
// interval.
//
// One connection carries exactly one message: the sender writes it and
// closes (or half-closes) its side of the stream.
//
// Connection is the other direction: a request/response channel from the
// orchestrator to a remote relay, created by a Dialer.
package bridge
