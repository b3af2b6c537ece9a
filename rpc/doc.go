// Package rpc contains the network side of rKV: the RESP wire format, the
// command layer and the client and server built on top of them.
//
// The package is organized into several subpackages:
//
//   - resp: Frame types, the check-then-parse decoder, the encoder and
//     Connection, which turns a byte stream into a sequence of frames.
//
//   - command: parses request frames into commands (GET, SET, DEL, EXISTS,
//     PING) and applies them to a store.IStore.
//
//   - common: configuration structures and the logging setup.
//
//   - transport: network communication with pluggable socket families (tcp,
//     unix) sharing one accept and request loop (base), plus the HTTP metrics
//     endpoint (http).
//
//   - server: wires store, command layer and transport into a server.
//
//   - client: a blocking store.IStore client talking to a server.
package rpc
