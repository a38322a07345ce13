// Package signals turns process signals into node lifecycle callbacks.
package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Handler is a function called when a signal is received.
type Handler func()

// Listener dispatches interrupt and reload signals to registered handlers.
type Listener struct {
	sigs chan os.Signal

	mu           sync.RWMutex
	interrupters []Handler
	reloaders    []Handler
	stopOnce     sync.Once
}

// NewListener subscribes to the platform's shutdown and reload signals.
func NewListener() *Listener {
	l := &Listener{sigs: make(chan os.Signal, 1)}
	notify(l.sigs)
	return l
}

// OnInterrupt registers h for SIGINT/SIGTERM. Nil handlers are ignored.
func (l *Listener) OnInterrupt(h Handler) {
	if h == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.interrupters = append(l.interrupters, h)
}

// OnReload registers h for SIGHUP. Nil handlers are ignored.
func (l *Listener) OnReload(h Handler) {
	if h == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reloaders = append(l.reloaders, h)
}

// Run dispatches signals until ctx is done or Stop is called. After an
// interrupt has been handled Run returns.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-l.sigs:
			if !ok {
				return
			}
			if isReload(sig) {
				l.fire("reload", l.snapshot(&l.reloaders))
				continue
			}
			l.fire("interrupt", l.snapshot(&l.interrupters))
			return
		}
	}
}

// Stop unsubscribes from signals and makes Run return.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		signal.Stop(l.sigs)
		close(l.sigs)
	})
}

func (l *Listener) snapshot(hs *[]Handler) []Handler {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Handler(nil), (*hs)...)
}

func (l *Listener) fire(kind string, hs []Handler) {
	for _, h := range hs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(logger.Fields{
						"at":      "signals.Listener.fire",
						"handler": kind,
						"panic":   r,
					}).Error("signal handler panicked")
				}
			}()
			h()
		}()
	}
}
