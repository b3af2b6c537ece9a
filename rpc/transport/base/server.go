package base

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/rKV/lib/pool"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
	"github.com/ValentinKolb/rKV/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Server Transport
// -----------------------------------------------------------

// ServerTransport implements the accept loop and the per-connection
// read -> handle -> write loop independent of the socket family.
type ServerTransport struct {
	connector IServerConnector
	handler   transport.ServerHandleFunc
	config    common.ServerConfig

	mu       sync.Mutex
	listener net.Listener
	pool     *pool.WorkerPool // nil for goroutine dispatch
	started  atomic.Bool
	ready    chan struct{}

	conns      *xsync.MapOf[uint64, net.Conn] // accepted connections that are still open
	nextConnID atomic.Uint64
	connWG     sync.WaitGroup // connection goroutines (goroutine dispatch)

	set            *metrics.Set
	accepted       *metrics.Counter
	closed         *metrics.Counter
	framesRead     *metrics.Counter
	framesWritten  *metrics.Counter
	protocolErrors *metrics.Counter
	ioErrors       *metrics.Counter
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new server transport for the given connector
func NewBaseServerTransport(connector IServerConnector) *ServerTransport {
	t := &ServerTransport{
		connector: connector,
		ready:     make(chan struct{}),
		conns:     xsync.NewMapOf[uint64, net.Conn](),
		set:       metrics.NewSet(),
	}

	t.accepted = t.set.NewCounter("rkv_server_connections_accepted_total")
	t.closed = t.set.NewCounter("rkv_server_connections_closed_total")
	t.framesRead = t.set.NewCounter("rkv_server_frames_read_total")
	t.framesWritten = t.set.NewCounter("rkv_server_frames_written_total")
	t.protocolErrors = t.set.NewCounter("rkv_server_protocol_errors_total")
	t.ioErrors = t.set.NewCounter("rkv_server_io_errors_total")
	t.set.NewGauge("rkv_server_connections_active", func() float64 {
		return float64(t.conns.Size())
	})

	return t
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *ServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *ServerTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}
	if !t.started.CompareAndSwap(false, true) {
		return errors.New("transport is already listening")
	}
	t.config = config

	listener, err := t.connector.Listen(config)
	if err != nil {
		// no listener, no state: the transport may listen again
		t.started.Store(false)
		return fmt.Errorf("failed to create listener: %w", err)
	}

	t.mu.Lock()
	t.listener = listener
	if config.Dispatch == common.DispatchPool {
		t.pool = pool.New(config.Workers)
	}
	t.mu.Unlock()
	close(t.ready)

	if t.pool != nil {
		Logger.Infof("Starting %s server on %s, serving connections on a pool of %d workers",
			t.connector.GetName(), listener.Addr(), config.Workers)
	} else {
		Logger.Infof("Starting %s server on %s, serving every connection on its own goroutine",
			t.connector.GetName(), listener.Addr())
	}

	// closing the listener is what unblocks Accept on shutdown
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			Logger.Infof("Shutdown requested, closing listener")
			_ = listener.Close()
		case <-stop:
		}
	}()

	err = t.acceptLoop(ctx, listener)
	_ = listener.Close()
	t.shutdown()
	return err
}

// --------------------------------------------------------------------------
// Public Helper Methods
// --------------------------------------------------------------------------

// Ready is closed once the listener is up
func (t *ServerTransport) Ready() <-chan struct{} {
	return t.ready
}

// Addr returns the listen address, or nil if the transport is not listening yet
func (t *ServerTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// ActiveConnections returns the number of accepted connections that are still open
func (t *ServerTransport) ActiveConnections() int {
	return t.conns.Size()
}

// MetricSets returns the metric sets of the transport and (in pool mode) of its worker pool
func (t *ServerTransport) MetricSets() []*metrics.Set {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pool == nil {
		return []*metrics.Set{t.set}
	}
	return []*metrics.Set{t.set, t.pool.Metrics()}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// acceptLoop accepts connections until the listener is closed
func (t *ServerTransport) acceptLoop(ctx context.Context, listener net.Listener) error {
	var backoff time.Duration

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				Logger.Warningf("Accept error: %v; retrying in %s", err, backoff)
				time.Sleep(backoff)
				continue
			}

			Logger.Errorf("Accept error: %v", err)
			return fmt.Errorf("accept failed: %w", err)
		}
		backoff = 0

		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			Logger.Warningf("Failed to upgrade connection from %s: %v", conn.RemoteAddr(), err)
			_ = conn.Close()
			continue
		}

		id := t.nextConnID.Add(1)
		t.conns.Store(id, conn)
		t.accepted.Inc()
		Logger.Debugf("Accepted connection %d from %s", id, conn.RemoteAddr())

		t.dispatch(id, conn)
	}
}

// dispatch hands the connection to the worker pool or to a new goroutine
func (t *ServerTransport) dispatch(id uint64, conn net.Conn) {
	if t.pool != nil {
		err := t.pool.Submit(func() {
			t.serveConn(id, conn)
		})
		if err != nil {
			Logger.Errorf("Failed to submit connection %d: %v", id, err)
			t.release(id, conn)
		}
		return
	}

	t.connWG.Add(1)
	go func() {
		defer t.connWG.Done()
		defer func() {
			if r := recover(); r != nil {
				Logger.Errorf("Connection %d: handler panicked: %v", id, r)
			}
		}()
		t.serveConn(id, conn)
	}()
}

// serveConn runs the request loop of one connection. Responses are written in
// request order, the next request is read only after the previous response was flushed.
func (t *ServerTransport) serveConn(id uint64, conn net.Conn) {
	defer t.release(id, conn)

	c := resp.NewConnection(conn,
		resp.BufferSizeOption(t.config.ReadBufferSize),
		resp.MaxFrameSizeOption(t.config.MaxFrameSize),
		resp.TimeoutOption(t.config.Timeout()),
	)

	for {
		req, err := c.ReadFrame()
		if err == io.EOF {
			Logger.Debugf("Connection %d closed by client", id)
			return
		}
		if err != nil {
			if _, open := t.conns.Load(id); !open {
				Logger.Debugf("Connection %d closed on shutdown", id)
				return
			}
			t.readFailed(id, c, err)
			return
		}
		t.framesRead.Inc()

		start := time.Now()
		res := t.handler(req)
		if res == nil {
			res = resp.Error("ERR internal error: no response")
		}
		Logger.Debugf("Connection %d: processed %s request in %s", id, req.Kind(), time.Since(start))

		if err := c.WriteFrame(res); err != nil {
			if _, open := t.conns.Load(id); !open {
				Logger.Debugf("Connection %d closed on shutdown", id)
				return
			}
			t.ioErrors.Inc()
			Logger.Errorf("Connection %d: failed to write response: %v", id, err)
			return
		}
		t.framesWritten.Inc()
	}
}

// readFailed logs a fatal read error. Protocol violations are reported to the
// peer before the connection is closed.
func (t *ServerTransport) readFailed(id uint64, c *resp.Connection, err error) {
	switch {
	case errors.Is(err, resp.ErrMalformed), errors.Is(err, resp.ErrFrameTooLarge):
		t.protocolErrors.Inc()
		Logger.Warningf("Connection %d: %v; closing connection", id, err)
		_ = c.WriteFrame(resp.Error("ERR " + err.Error()))
	case errors.Is(err, resp.ErrConnectionReset):
		t.ioErrors.Inc()
		Logger.Warningf("Connection %d: %v", id, err)
	default:
		t.ioErrors.Inc()
		Logger.Errorf("Connection %d: %v", id, err)
	}
}

// release closes the connection and removes it from the registry
func (t *ServerTransport) release(id uint64, conn net.Conn) {
	if _, loaded := t.conns.LoadAndDelete(id); !loaded {
		return
	}
	_ = conn.Close()
	t.closed.Inc()
}

// shutdown waits for accepted connections to finish. They are not touched
// for ShutdownTimeout; whatever is still open after that is closed, and
// shutdown returns once the connection loops are done. In pool mode the pool
// is closed, which lets queued connections run and joins every worker.
func (t *ServerTransport) shutdown() {
	name := t.connector.GetName()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if t.pool != nil {
			t.pool.Close()
		} else {
			t.connWG.Wait()
		}
	}()

	select {
	case <-done:
		Logger.Infof("%s server stopped", name)
		return
	case <-time.After(t.config.ShutdownTimeout):
	}

	Logger.Warningf("%s server: shutdown timeout %s passed, closing %d connections that are still open",
		name, t.config.ShutdownTimeout, t.conns.Size())
	t.conns.Range(func(id uint64, conn net.Conn) bool {
		t.release(id, conn)
		return true
	})

	select {
	case <-done:
		Logger.Infof("%s server stopped", name)
	case <-time.After(t.config.ShutdownTimeout):
		Logger.Errorf("%s server stopped, but some handlers did not return after their connection was closed", name)
	}
}

var _ transport.IRPCServerTransport = (*ServerTransport)(nil)
