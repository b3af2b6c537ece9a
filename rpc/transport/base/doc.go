// Package base implements the client and server side of the transport layer
// on top of net.Conn, independent of the socket family. Protocol specific
// details (how to listen, dial and tune a socket) are injected through the
// IServerConnector and IClientConnector interfaces; the tcp and unix packages
// provide them.
//
// Key Components:
//
//   - ServerTransport: accepts connections and runs one request loop per
//     connection. The loop reads a frame, calls the registered handler and
//     writes the returned frame before reading the next one, so responses
//     leave in request order. Connections run either on their own goroutine
//     or as tasks of a pool.WorkerPool (ServerConfig.Dispatch). With a pool
//     of N workers at most N connections are served at a time; further
//     connections wait in the pool queue.
//
//   - clientTransport: keeps one connection per endpoint and picks them
//     round robin. A request holds its connection until the response has
//     been read. Failed requests are retried with exponential backoff and
//     the broken connection is re-established on next use.
//
// Error Handling:
//
//	A clean disconnect ends the request loop quietly. A malformed or
//	oversized frame is answered with an error frame and the connection is
//	closed, since the stream can not be resynchronized. Handler errors are
//	the handler's business: it reports them as resp.Error frames.
//
// Shutdown:
//
//	Cancelling the context passed to Listen closes the listener. Connections
//	that were already accepted are not interrupted; Listen waits for them up
//	to ServerConfig.ShutdownTimeout (in pool mode by closing and joining the
//	pool) and then returns.
//
// Metrics:
//
//	The server counts accepted and closed connections, frames read and
//	written, protocol errors and I/O errors in a VictoriaMetrics set, see
//	ServerTransport.MetricSets.
package base
