package router

import (
	"context"
	"crypto/sha256"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-i2p/common/base32"
	"github.com/go-i2p/go-onion/lib/bridge"
	"github.com/go-i2p/go-onion/lib/config"
	"github.com/go-i2p/go-onion/lib/onion"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

// outboundBuffer is shared by every dialogue writing to the API.
const outboundBuffer = 64

// Router owns every long lived worker of one node.
type Router struct {
	settings *config.Settings
	identity string

	inbound  chan bridge.Inbound
	outbound chan bridge.Outbound

	api        *bridge.APIWorker
	p2p        *bridge.P2PWorker
	dispatcher *onion.Dispatcher

	runMux    sync.Mutex
	running   bool
	started   time.Time
	closeChnl chan struct{}
}

// CreateRouter wires a node from validated settings. Nothing is bound until
// Start.
func CreateRouter(s *config.Settings) (*Router, error) {
	if s == nil {
		return nil, oops.Wrapf(config.ErrConfig, "no settings")
	}
	identity, err := hostkeyIdentity(s.HostkeyPath)
	if err != nil {
		return nil, err
	}

	r := &Router{
		settings:  s,
		identity:  identity,
		inbound:   make(chan bridge.Inbound, s.ChannelSize),
		outbound:  make(chan bridge.Outbound, outboundBuffer),
		closeChnl: make(chan struct{}),
	}

	opts := bridge.Options{ReadTimeout: s.ReadTimeout}
	r.api = bridge.NewAPIWorker(s.APISocket, s.APIPeer, r.inbound, r.outbound, opts)

	var limiter *rate.Limiter
	if s.P2PAcceptRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.P2PAcceptRate), max(s.P2PAcceptBurst, 1))
	}
	r.p2p = bridge.NewP2PWorker(s.P2PSocket, r.inbound, limiter, opts)

	dialer := bridge.NetDialer{Timeout: 5 * time.Second, ReadTimeout: s.ReadTimeout}
	r.dispatcher = onion.NewDispatcher(onion.Config{
		MinHopCount:    s.MinHopCount,
		ChannelSize:    s.ChannelSize,
		ResponderRate:  rate.Limit(s.ResponderRate),
		ResponderBurst: s.ResponderBurst,
	}, onion.NewIDAllocator(), dialer, r.inbound, r.outbound)

	return r, nil
}

// hostkeyIdentity reads the node's host key and returns its fingerprint.
func hostkeyIdentity(path string) (string, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return "", oops.
			In("router").
			Code("hostkey").
			Wrapf(err, "couldn't read hostkey %s", path)
	}
	sum := sha256.Sum256(key)
	return strings.TrimRight(base32.EncodeToString(sum[:]), "="), nil
}

// Start binds both sockets and starts the dispatcher. A bind failure stops
// whatever was already started and is returned.
func (r *Router) Start(ctx context.Context) error {
	r.runMux.Lock()
	defer r.runMux.Unlock()

	if r.running {
		log.WithFields(logger.Fields{
			"at":     "(Router) Start",
			"reason": "router is already running",
		}).Error("Error Starting router")
		return nil
	}

	if err := r.api.Start(); err != nil {
		return oops.Wrapf(err, "starting control API listener")
	}
	if err := r.p2p.Start(); err != nil {
		r.api.Stop()
		return oops.Wrapf(err, "starting P2P listener")
	}
	r.dispatcher.Start(ctx)

	r.running = true
	r.started = time.Now()
	log.WithFields(logger.Fields{
		"at":       "(Router) Start",
		"api":      r.api.Addr().String(),
		"p2p":      r.p2p.Addr().String(),
		"identity": r.identity,
	}).Info("router started")
	return nil
}

// Stop shuts down the dispatcher, joining every dialogue, and then both
// listeners.
func (r *Router) Stop() {
	r.runMux.Lock()
	defer r.runMux.Unlock()

	if !r.running {
		log.Debug("Router already stopped")
		return
	}
	r.running = false

	if err := r.dispatcher.Stop(); err != nil {
		log.WithError(err).Warn("dispatcher stop")
	}
	r.p2p.Stop()
	r.api.Stop()
	close(r.closeChnl)
	log.WithField("at", "(Router) Stop").Info("router stopped")
}

// Close implements io.Closer.
func (r *Router) Close() error {
	r.Stop()
	return nil
}

// Wait blocks until Stop has completed.
func (r *Router) Wait() {
	<-r.closeChnl
}

// APIAddr is the bound control API address, or "" before Start.
func (r *Router) APIAddr() string {
	if a := r.api.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// P2PAddr is the bound P2P address, or "" before Start.
func (r *Router) P2PAddr() string {
	if a := r.p2p.Addr(); a != nil {
		return a.String()
	}
	return ""
}

// Identity is the base32 fingerprint of the node's host key.
func (r *Router) Identity() string {
	return r.identity
}

// Report describes the running node as key/value rows.
func (r *Router) Report() [][2]string {
	r.runMux.Lock()
	running, started := r.running, r.started
	r.runMux.Unlock()

	rows := [][2]string{
		{"identity", r.identity},
		{"api", r.APIAddr()},
		{"p2p", r.P2PAddr()},
		{"min hops", strconv.Itoa(r.settings.MinHopCount)},
		{"inbound queued", strconv.Itoa(len(r.inbound))},
		{"outbound queued", strconv.Itoa(len(r.outbound))},
	}
	if running {
		rows = append(rows, [2]string{"uptime", time.Since(started).Truncate(time.Second).String()})
	}
	if r.settings.APIPeer != "" {
		rows = append(rows, [2]string{"api peer", r.settings.APIPeer})
	}
	return rows
}

// Run starts r and blocks until ctx is done, then stops it. Socket setup
// errors are returned immediately. started, if not nil, is called once both
// sockets are bound.
func (r *Router) Run(ctx context.Context, started func(*Router)) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	if started != nil {
		started(r)
	}
	<-ctx.Done()
	r.Stop()
	return nil
}

// Run creates a node from s and runs it until ctx is done.
func Run(ctx context.Context, s *config.Settings) error {
	r, err := CreateRouter(s)
	if err != nil {
		return err
	}
	return r.Run(ctx, nil)
}
