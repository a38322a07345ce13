// Package router runs a relay node: the control API and P2P listeners from
// package bridge and the tunnel dispatcher from package onion, joined by the
// inbound and outbound channels.
//
// # Usage
//
//	settings, err := config.Load(path)
//	if err != nil {
//	    return err
//	}
//	return router.Run(ctx, settings)
//
// Run returns when ctx is cancelled or with the first socket setup error.
// Callers that need the node's addresses or a status report use CreateRouter,
// Start, Stop and Wait directly.
package router
