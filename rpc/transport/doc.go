// Package transport defines the interfaces of the network layer of the key-value
// server. Implementations move resp frames between clients and the server;
// they do not interpret them.
//
// Key Components:
//
//   - IRPCServerTransport: accepts connections and calls the registered
//     ServerHandleFunc for every request frame, writing back the frame it returns.
//
//   - IRPCClientTransport: sends requests and waits for the response frame.
//
//   - ServerHandleFunc: function type for request handling callbacks.
//
// The base package implements both sides on top of net.Conn; the tcp and unix
// packages plug in the socket family specific parts.
package transport
