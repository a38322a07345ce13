package bridge

import (
	"errors"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// DefaultPollInterval bounds one wait for readiness.
const DefaultPollInterval = 100 * time.Millisecond

// Options tune a worker. The zero value is usable.
type Options struct {
	// PollInterval bounds how long one cycle waits for a connection.
	PollInterval time.Duration
	// ReadTimeout bounds reading one connection to completion. Zero waits
	// until the remote closes.
	ReadTimeout time.Duration
	// DialTimeout bounds connecting the persistent outbound stream.
	DialTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = 5 * time.Second
	}
	return o
}

// Worker runs one listening socket on its own goroutine.
type Worker struct {
	name    string
	origin  Origin
	addr    string
	opts    Options
	inbound chan<- Inbound

	// serve handles one accepted connection; tick runs after every cycle.
	serve func(*net.TCPConn)
	tick  func()
	// cleanup runs on the worker goroutine when it exits.
	cleanup func()
	// bindExtra binds further sockets on the listener's address. Each
	// returned loop runs on its own goroutine until the stop flag is raised.
	bindExtra func(*net.TCPAddr) ([]func(), error)

	listener *net.TCPListener
	stop     atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func newWorker(name string, origin Origin, addr string, inbound chan<- Inbound, opts Options) *Worker {
	return &Worker{
		name:    name,
		origin:  origin,
		addr:    addr,
		opts:    opts.withDefaults(),
		inbound: inbound,
		done:    make(chan struct{}),
	}
}

// Addr returns the bound listening address, or nil before Start.
func (w *Worker) Addr() net.Addr {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.listener == nil {
		return nil
	}
	return w.listener.Addr()
}

// Start binds the socket and launches the worker goroutine. A bind failure is
// returned wrapped in ErrSocketSetup.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrAlreadyRunning
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", w.addr)
	if err != nil {
		return socketSetup(err, w.addr)
	}
	listener, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return socketSetup(err, w.addr)
	}
	var loops []func()
	if w.bindExtra != nil {
		loops, err = w.bindExtra(listener.Addr().(*net.TCPAddr))
		if err != nil {
			listener.Close()
			return socketSetup(err, w.addr)
		}
	}
	w.listener = listener
	w.running = true

	log.WithFields(logger.Fields{
		"at":      "bridge.Worker.Start",
		"worker":  w.name,
		"address": listener.Addr().String(),
	}).Info("listener_started")

	w.wg.Add(1 + len(loops))
	go w.run()
	for _, loop := range loops {
		go func() {
			defer w.wg.Done()
			loop()
		}()
	}
	return nil
}

// Stop raises the stop flag and joins the worker goroutine.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.stop.Store(true)
	close(w.done)
	w.wg.Wait()

	log.WithFields(logger.Fields{
		"at":     "bridge.Worker.Stop",
		"worker": w.name,
	}).Info("listener_stopped")
}

func (w *Worker) run() {
	defer w.wg.Done()
	defer w.listener.Close()
	if w.cleanup != nil {
		defer w.cleanup()
	}

	for !w.stop.Load() {
		w.poll()
		if w.tick != nil {
			w.tick()
		}
	}
}

// poll waits at most one poll interval for a connection and serves it.
func (w *Worker) poll() {
	_ = w.listener.SetDeadline(time.Now().Add(w.opts.PollInterval))
	conn, err := w.listener.AcceptTCP()
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) || w.stop.Load() {
			return
		}
		log.WithFields(logger.Fields{
			"at":     "bridge.Worker.poll",
			"worker": w.name,
		}).WithError(err).Error("failed_to_accept_connection")
		return
	}
	w.serve(conn)
}

// forward hands a decoded message to the orchestrator. It gives up when the
// worker is stopped while the channel is full.
func (w *Worker) forward(in Inbound) bool {
	select {
	case w.inbound <- in:
		return true
	case <-w.done:
		in.Close()
		return false
	}
}
