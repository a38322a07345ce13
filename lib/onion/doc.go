// Package onion builds and runs tunnels.
//
// The Dispatcher reads tagged messages from the bridge's inbound channel. A
// tunnel build request from the control API starts an initiator dialogue;
// a message from another relay starts a responder dialogue. Every dialogue
// runs on its own goroutine with a private, bounded inbox and writes its
// requests to the shared outbound channel.
//
// Initiator dialogue:
//
//	AwaitingHop(0) -> ... -> AwaitingHop(n) -> TunnelReady -> Active -> Destroyed
//
// Each hop costs one peer sample and one Auth session handshake. Once n hops
// exist the tunnel id is announced to the API and data is layer encrypted and
// sent through the entry hop until the API destroys the tunnel.
//
// Responses are routed back to dialogues by request id (Auth), in request
// order (peer sampling has no id on the wire) or by tunnel id (API data and
// destroy). A message nobody waits for is logged and dropped.
//
// A failing dialogue only ends itself.
package onion
