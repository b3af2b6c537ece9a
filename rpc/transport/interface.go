package transport

import (
	"context"

	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests.
// It is called by a server transport for every frame read from a connection
// and returns the frame to write back. It may be called concurrently for
// different connections.
type ServerHandleFunc func(req resp.Frame) (res resp.Frame)

// IRPCServerTransport is the interface for the server side of the transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the handler that is called for every request.
	// It must be called before Listen.
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts accepting connections and blocks until ctx is cancelled or
	// the listener fails. Connections that were already accepted are served
	// until their peer disconnects.
	Listen(ctx context.Context, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the client side of the transport layer
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request built from args and returns the response frame
	Send(args ...[]byte) (res resp.Frame, err error)
	// Close closes the transport connections
	Close() error
}
