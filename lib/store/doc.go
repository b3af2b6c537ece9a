// Package store defines the key-value store contract the server executes commands
// against, together with a unified error type.
//
// Key Components:
//
//   - IStore Interface: Set, SetE (set with expiry), Delete, Get and Has. Both the
//     in-process store and the network client implement it, so command logic and
//     tests do not care which one they talk to.
//
//   - Error System: failures of the store itself are reported as *Error carrying a
//     RetCode and a message, so callers can tell invalid arguments apart from
//     internal failures.
//
// Implementations:
//
//   - Local Store (lstore): an in-memory map guarded by a single mutex with a
//     deadline index for expiring keys. This is the shared state of the server.
//     Available in the "github.com/ValentinKolb/rKV/lib/store/lstore" package.
//
//   - RPC Store (rpc/client): speaks the wire protocol to a running server.
//     Available in the "github.com/ValentinKolb/rKV/rpc/client" package.
//
// The "github.com/ValentinKolb/rKV/lib/store/testing" package contains a test
// suite every implementation is run against.
package store
