// Package server wires the parts of an rKV server together: a store, the
// command layer and a transport.
//
// Every request frame read by the transport is parsed with command.FromFrame
// and applied to the store; the resulting frame is the response. Requests that
// can not be parsed (wrong arity, bad EX/PX options, not an array) are answered
// with an error frame and the connection stays open. Unknown commands answer
// "ERR unknown command '<name>'".
//
// All connections share one store. lstore.LocalStore guards it with a single
// mutex which is held for the duration of one store operation only, never
// while a connection reads or writes.
//
// If ServerConfig.MetricsEndpoint is set, Serve also runs an HTTP server
// exposing /metrics (transport, worker pool, store and per command counters)
// and /health. Both run in one errgroup; Serve returns when both stopped.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Dispatch = common.DispatchPool
//	config.Workers = 8
//
//	s, err := server.NewRPCServer(config, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := s.Serve(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
