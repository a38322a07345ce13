package onion

import (
	"context"
	"sync"

	"github.com/go-i2p/go-onion/lib/bridge"
	"github.com/go-i2p/go-onion/lib/wire"
	"github.com/go-i2p/logger"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

// DefaultChannelSize is the default dialogue backlog warning threshold.
const DefaultChannelSize = 16

// Config holds the orchestrator settings.
type Config struct {
	// MinHopCount is the number of hops of every tunnel built here.
	MinHopCount int
	// ChannelSize is the inbox backlog of one dialogue above which a
	// warning is logged. Messages are never dropped.
	ChannelSize int
	// ResponderRate limits how many responder dialogues start per second.
	// Zero means unlimited.
	ResponderRate  rate.Limit
	ResponderBurst int
}

// Dispatcher routes inbound messages to dialogues and owns their
// goroutines.
type Dispatcher struct {
	cfg      Config
	ids      *IDAllocator
	dialer   bridge.Dialer
	inbound  <-chan bridge.Inbound
	outbound chan<- bridge.Outbound

	routes  *routes
	peers   *peerTable
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func NewDispatcher(cfg Config, ids *IDAllocator, dialer bridge.Dialer, inbound <-chan bridge.Inbound, outbound chan<- bridge.Outbound) *Dispatcher {
	if cfg.MinHopCount < 1 {
		cfg.MinHopCount = 1
	}
	if cfg.ChannelSize <= 0 {
		cfg.ChannelSize = DefaultChannelSize
	}
	if ids == nil {
		ids = NewIDAllocator()
	}
	d := &Dispatcher{
		cfg:      cfg,
		ids:      ids,
		dialer:   dialer,
		inbound:  inbound,
		outbound: outbound,
		routes:   newRoutes(),
		peers:    newPeerTable(),
	}
	if cfg.ResponderRate > 0 {
		d.limiter = rate.NewLimiter(cfg.ResponderRate, max(cfg.ResponderBurst, 1))
	}
	return d
}

// Start launches the dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.running = true

	d.wg.Add(1)
	go d.loop()

	log.WithFields(logger.Fields{
		"at":            "onion.Dispatcher.Start",
		"min_hop_count": d.cfg.MinHopCount,
	}).Info("dispatcher_started")
}

// Stop cancels every dialogue and waits for all of them to exit.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.running = false
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()

	log.WithField("at", "onion.Dispatcher.Stop").Info("dispatcher_stopped")
	return nil
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case in, ok := <-d.inbound:
			if !ok {
				log.WithField("at", "onion.Dispatcher.loop").Warn("inbound_channel_closed")
				return
			}
			d.dispatch(in)
		}
	}
}

func (d *Dispatcher) dispatch(in bridge.Inbound) {
	if in.Origin == bridge.OriginP2P {
		d.startResponder(in)
		return
	}

	switch m := in.Message.(type) {
	case wire.OnionTunnelBuild:
		d.startInitiator(m)
	case wire.RpsPeer:
		if box, ok := d.routes.nextPeer(); ok {
			box.put(m)
			return
		}
		d.unroutable(m)
	case wire.OnionTunnelData:
		d.toTunnel(m.TunnelID, m)
	case wire.OnionTunnelDestroy:
		d.toTunnel(m.TunnelID, m)
	case wire.OnionCover:
		for _, box := range d.routes.activeTunnels() {
			box.put(m)
		}
	default:
		if id, ok := requestIDOf(m); ok {
			if box, ok := d.routes.request(id); ok {
				box.put(m)
				return
			}
		}
		d.unroutable(m)
	}
}

func (d *Dispatcher) toTunnel(id uint32, m wire.Message) {
	if box, ok := d.routes.tunnel(id); ok {
		box.put(m)
		return
	}
	d.unroutable(m)
}

func (d *Dispatcher) unroutable(m wire.Message) {
	log.WithFields(logger.Fields{
		"at":       "onion.Dispatcher.dispatch",
		"msg_type": wire.Name(m),
		"reason":   "no dialogue waiting for it",
	}).Warn("discarding_message")
}

func (d *Dispatcher) startInitiator(build wire.OnionTunnelBuild) {
	t := &initiator{
		comm:  newComm(d.ctx, d.cfg.ChannelSize, d.outbound, d.routes),
		d:     d,
		build: build,
	}
	log.WithFields(logger.Fields{
		"at":          "onion.Dispatcher.startInitiator",
		"destination": build.Addr.String(),
		"port":        build.OnionTunnel,
		"hostkey":     fingerprint(build.Hostkey),
	}).Info("building_tunnel")
	d.spawn("initiator", t.run)
}

func (d *Dispatcher) startResponder(in bridge.Inbound) {
	if d.limiter != nil && !d.limiter.Allow() {
		log.WithFields(logger.Fields{
			"at":       "onion.Dispatcher.startResponder",
			"msg_type": wire.Name(in.Message),
			"reason":   "responder rate exceeded",
		}).Warn("discarding_message")
		in.Close()
		return
	}
	r := &responder{
		comm: newComm(d.ctx, d.cfg.ChannelSize, d.outbound, d.routes),
		d:    d,
		in:   in,
	}
	d.spawn("responder", r.run)
}

// spawn runs a dialogue on its own goroutine. Its error ends only that
// dialogue.
func (d *Dispatcher) spawn(kind string, run func() error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := run(); err != nil {
			log.WithFields(logger.Fields{
				"at":       "onion.Dispatcher.spawn",
				"dialogue": kind,
			}).WithError(err).Error("dialogue encountered a problem")
		}
	}()
}
