// Package tcp implements the TCP socket transport of the key-value server.
// It provides the TCP specific connectors for the base package, which does
// the actual work (accept loop, request loop, retries); see its documentation.
//
// Key Components:
//
//   - serverConnector: listens on a host:port endpoint and applies the socket
//     options of common.TransportConf (TCP_NODELAY, keep-alive, linger and the
//     kernel socket buffer sizes) to every accepted connection.
//
//   - clientConnector: dials with the configured timeout and disables Nagle's
//     algorithm, since requests are small and wait for their response.
package tcp
