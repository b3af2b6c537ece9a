package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/transport/base"
)

// serverConnector implements the IServerConnector interface for TCP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "tcp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	listener, err := net.Listen("tcp", config.Transport.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create TCP socket: %w", err)
	}

	return listener, nil
}

// UpgradeConnection applies the socket options of config.Transport to a TCP connection
func (c *serverConnector) UpgradeConnection(conn net.Conn, config common.ServerConfig) error {
	return tuneConn(conn, config.Transport)
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a new TCP server transport
func NewTCPServerTransport() *base.ServerTransport {
	return base.NewBaseServerTransport(&serverConnector{})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// tuneConn applies the TCP settings of conf. Connections that are not TCP
// connections are left untouched.
func tuneConn(conn net.Conn, conf common.TransportConf) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	// Disable Nagle's algorithm if configured
	if err := tcpConn.SetNoDelay(conf.TCPNoDelay); err != nil {
		return err
	}

	if conf.SocketWriteBuffer > 0 {
		if err := tcpConn.SetWriteBuffer(conf.SocketWriteBuffer); err != nil {
			return err
		}
	}

	if conf.SocketReadBuffer > 0 {
		if err := tcpConn.SetReadBuffer(conf.SocketReadBuffer); err != nil {
			return err
		}
	}

	if conf.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(conf.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	if conf.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(conf.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}
