// Package cmd implements the command-line interface of rKV. It provides a
// hierarchical command structure with operations for running the server and
// talking to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: starts the server (transport, dispatch mode, limits, metrics)
//   - kv: client commands (get, set, del, has, ping) and the perf benchmark
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Configuration is read from flags, RKV_* environment variables (also from
// .env and .env.local) and an optional --config file, in this order of
// precedence.
//
// See rkv -help for a list of all commands.
package cmd
