package base

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
	"github.com/ValentinKolb/rKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientConnection represents a single net connection. A request holds mu
// until its response was read, so responses always match their request.
type clientConnection struct {
	mu       sync.Mutex
	endpoint string
	conn     net.Conn
	rc       *resp.Connection
	parent   *clientTransport
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	connections   []*clientConnection
	connectionsMu sync.RWMutex
	nextConnIndex atomic.Uint64 // Round Robin
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	t.closeConnections()
	t.config = config

	connections := make([]*clientConnection, 0, len(config.Endpoints))
	for _, endpoint := range config.Endpoints {
		c := &clientConnection{
			endpoint: endpoint,
			parent:   t,
		}

		c.mu.Lock()
		err := c.reconnect()
		c.mu.Unlock()
		if err != nil {
			Logger.Warningf("Failed to connect to %s: %v", endpoint, err)
			continue
		}

		Logger.Infof("Connected to %s", endpoint)
		connections = append(connections, c)
	}

	if len(connections) == 0 {
		return fmt.Errorf("failed to connect to any endpoint")
	}

	t.connectionsMu.Lock()
	t.connections = connections
	t.connectionsMu.Unlock()

	Logger.Infof("Connected to %d out of %d endpoints using %s transport",
		len(connections), len(config.Endpoints), t.connector.GetName())

	return nil
}

func (t *clientTransport) Send(args ...[]byte) (resp.Frame, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	// We always try at least once
	maxRetries := max(t.config.RetryCount, 1)

	// Initial backoff duration in milliseconds
	backoffMs := 50

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		conn := t.getNextConnection()
		if conn == nil {
			return nil, fmt.Errorf("no active connections available")
		}

		res, err := conn.roundTrip(args)
		if err == nil {
			return res, nil
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	t.closeConnections()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// getNextConnection selects the next connection via Round Robin
func (t *clientTransport) getNextConnection() *clientConnection {
	t.connectionsMu.RLock()
	defer t.connectionsMu.RUnlock()

	if len(t.connections) == 0 {
		return nil
	}
	if len(t.connections) == 1 {
		return t.connections[0]
	}

	index := t.nextConnIndex.Add(1) % uint64(len(t.connections))
	return t.connections[index]
}

// closeConnections closes all active connections
func (t *clientTransport) closeConnections() {
	t.connectionsMu.Lock()
	connections := t.connections
	t.connections = nil
	t.connectionsMu.Unlock()

	for _, c := range connections {
		c.mu.Lock()
		c.drop()
		c.mu.Unlock()
	}
}

// roundTrip writes one command and reads its response. A failed round trip
// leaves the stream in an unknown state, so the connection is dropped and
// re-established by the next request.
func (c *clientConnection) roundTrip(args [][]byte) (resp.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rc == nil {
		if err := c.reconnect(); err != nil {
			return nil, err
		}
	}

	if err := c.rc.WriteCommand(args...); err != nil {
		c.drop()
		return nil, err
	}

	res, err := c.rc.ReadFrame()
	if err != nil {
		c.drop()
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	return res, nil
}

// reconnect establishes or restores the connection. The caller holds c.mu.
func (c *clientConnection) reconnect() error {
	c.drop()

	config := c.parent.config
	timeout := time.Duration(config.TimeoutSecond) * time.Second

	conn, err := c.parent.connector.Connect(c.endpoint, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}

	if err := c.parent.connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", c.endpoint, err)
	}

	opts := []resp.Option{resp.TimeoutOption(timeout)}
	if config.MaxFrameSize > 0 {
		opts = append(opts, resp.MaxFrameSizeOption(config.MaxFrameSize))
	}

	c.conn = conn
	c.rc = resp.NewConnection(conn, opts...)
	return nil
}

// drop closes the connection if there is one. The caller holds c.mu.
func (c *clientConnection) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.rc = nil
}
