package client

import (
	"fmt"

	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
	"github.com/ValentinKolb/rKV/rpc/transport"
	"github.com/ValentinKolb/rKV/rpc/transport/tcp"
	"github.com/ValentinKolb/rKV/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("client")
)

// NewClientTransport returns the client transport for the given transport type
func NewClientTransport(t common.TransportType) (transport.IRPCClientTransport, error) {
	switch t {
	case common.TransportTCP:
		return tcp.NewTCPClientTransport(), nil
	case common.TransportUnix:
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("unknown transport type: %s", t)
	}
}

// invoke sends a request and converts error frames into store errors
func invoke(transport transport.IRPCClientTransport, args [][]byte) (resp.Frame, error) {
	res, err := transport.Send(args...)
	if err != nil {
		return nil, err
	}

	if e, ok := res.(resp.Error); ok {
		return nil, store.NewError(store.RetCInternalError, string(e))
	}
	return res, nil
}

// unexpected returns the error for a response of the wrong type
func unexpected(cmd string, res resp.Frame) error {
	return fmt.Errorf("unexpected response to %s: %s (%s)", cmd, res.Kind(), res)
}
