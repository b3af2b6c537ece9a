// Package unix implements a transport for the key-value server using Unix
// domain sockets, for clients running on the same machine. The connection
// handling itself is inherited from the base package.
//
// The server removes a stale socket file at the endpoint path before it
// listens, and removes the file again when the listener is closed.
package unix
