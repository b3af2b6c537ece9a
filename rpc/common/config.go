package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

// TransportType names the socket family used by server and client
type TransportType string

const (
	TransportTCP  TransportType = "tcp"
	TransportUnix TransportType = "unix"
)

// TransportConf holds the socket level settings
type TransportConf struct {
	// Type is the socket family (tcp or unix)
	Type TransportType
	// Endpoint is the listen address (host:port for tcp, a file path for unix)
	Endpoint string

	// TCP options, ignored for unix sockets
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int // negative keeps the OS default

	// socket buffer sizes, 0 keeps the OS default
	SocketReadBuffer  int
	SocketWriteBuffer int
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// DispatchMode decides how accepted connections are served
type DispatchMode string

const (
	// DispatchGoroutine serves every connection on its own goroutine
	DispatchGoroutine DispatchMode = "goroutine"
	// DispatchPool serves connections on a fixed-size worker pool
	DispatchPool DispatchMode = "pool"
)

// ServerConfig holds all configuration parameters of the server.
type ServerConfig struct {
	Transport TransportConf

	// Dispatch selects goroutine per connection or the worker pool
	Dispatch DispatchMode
	// Workers is the worker pool size (pool dispatch only)
	Workers int

	// TimeoutSecond is the read/write deadline per frame, 0 disables deadlines
	TimeoutSecond int64
	// MaxFrameSize limits the bytes buffered for a single frame
	MaxFrameSize int
	// ReadBufferSize is the initial capacity of the per-connection read buffer
	ReadBufferSize int
	// ShutdownTimeout bounds how long a shutdown waits for the worker pool
	ShutdownTimeout time.Duration

	// ExpiryInterval is the period of the expired key sweep, negative disables it
	ExpiryInterval time.Duration

	// MetricsEndpoint is the listen address of the http metrics server, empty disables it
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the configuration used when nothing is set
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Transport: TransportConf{
			Type:            TransportTCP,
			Endpoint:        "127.0.0.1:6379",
			TCPNoDelay:      true,
			TCPKeepAliveSec: 30,
			TCPLingerSec:    -1,
		},
		Dispatch:        DispatchGoroutine,
		Workers:         4,
		TimeoutSecond:   0,
		MaxFrameSize:    512 * 1024 * 1024,
		ReadBufferSize:  4 * 1024,
		ShutdownTimeout: 10 * time.Second,
		ExpiryInterval:  100 * time.Millisecond,
		LogLevel:        "info",
	}
}

// Validate checks the configuration for values the server can not run with
func (c *ServerConfig) Validate() error {
	var errs []error

	if c.Transport.Endpoint == "" {
		errs = append(errs, errors.New("endpoint must not be empty"))
	}
	switch c.Transport.Type {
	case TransportTCP, TransportUnix:
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q (must be tcp or unix)", c.Transport.Type))
	}
	switch c.Dispatch {
	case DispatchGoroutine:
	case DispatchPool:
		if c.Workers < 1 {
			errs = append(errs, fmt.Errorf("pool dispatch needs at least one worker, got %d", c.Workers))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dispatch mode %q (must be goroutine or pool)", c.Dispatch))
	}
	if c.TimeoutSecond < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %d", c.TimeoutSecond))
	}
	if c.MaxFrameSize < 16 {
		errs = append(errs, fmt.Errorf("max frame size must be at least 16 bytes, got %d", c.MaxFrameSize))
	}
	if c.ReadBufferSize < 1 {
		errs = append(errs, fmt.Errorf("read buffer size must be positive, got %d", c.ReadBufferSize))
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must not be negative, got %s", c.ShutdownTimeout))
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Timeout returns the per frame deadline as duration
func (c *ServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Transport", string(c.Transport.Type))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.ReadBufferSize))

	addSection("Dispatch")
	addField("Mode", string(c.Dispatch))
	if c.Dispatch == DispatchPool {
		addField("Workers", strconv.Itoa(c.Workers))
	}
	addField("Shutdown Timeout", c.ShutdownTimeout.String())

	if c.Transport.Type == TransportTCP {
		addSection("TCP")
		addField("No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
		addField("Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
		addField("Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))
	}

	addSection("Store")
	addField("Expiry Interval", c.ExpiryInterval.String())

	addSection("Observability")
	metricsEndpoint := c.MetricsEndpoint
	if metricsEndpoint == "" {
		metricsEndpoint = "disabled"
	}
	addField("Metrics Endpoint", metricsEndpoint)
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints     []string
	Transport     TransportType
	TimeoutSecond int
	RetryCount    int
	MaxFrameSize  int
}

// DefaultClientConfig returns the configuration used when nothing is set
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoints:     []string{"127.0.0.1:6379"},
		Transport:     TransportTCP,
		TimeoutSecond: 5,
		RetryCount:    2,
		MaxFrameSize:  512 * 1024 * 1024,
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Transport", string(c.Transport))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
