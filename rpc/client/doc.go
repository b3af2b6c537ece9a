// Package client implements a blocking rKV client. RPCStore implements
// store.IStore by sending GET, SET, DEL and EXISTS commands to a server, so
// code written against the store interface runs unchanged against a local
// lstore.LocalStore or a remote server.
//
// Key Components:
//
//   - NewRPCStore: connects the given transport and returns the store client.
//     Requests are sent through transport.IRPCClientTransport, which retries
//     failed requests and reconnects broken connections.
//
//   - NewClientTransport: picks the tcp or unix transport for a ClientConfig.
//
// Error Handling:
//
//	Error frames sent by the server are returned as *store.Error with code
//	RetCInternalError and the server message. SetE rejects negative expiries
//	locally with RetCInvalidOperation, matching the local store.
//
// Usage Example:
//
//	config := common.DefaultClientConfig()
//	t, _ := client.NewClientTransport(config.Transport)
//	s, err := client.NewRPCStore(config, t)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Close()
//
//	_ = s.SetE("session", []byte("token"), time.Minute)
//	value, ok, _ := s.Get("session")
//
// Thread Safety:
//
//	RPCStore is safe for concurrent use. Each request holds one connection
//	until its response arrived.
package client
