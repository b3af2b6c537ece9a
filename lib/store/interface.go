package store

import (
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the interface for interacting with a key–value store.
// Write operations return only an error (nil on success),
// read operations return the requested data along with an error (nil on success).
//
// Implementations return a *Error for failures of the store itself.
type IStore interface {
	// Set inserts or updates a key–value pair. Any expiry of a previous value is cleared.
	Set(key string, value []byte) (err error)
	// SetE inserts or updates a key–value pair that expires after expireIn.
	// A zero expireIn behaves like Set. Negative values are invalid.
	SetE(key string, value []byte, expireIn time.Duration) (err error)
	// Delete removes a key–value pair and reports whether the key existed.
	Delete(key string) (deleted bool, err error)
	// Get returns a copy of the value for a key. The boolean return value indicates
	// whether a live (not expired) value was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a live value exists for a key.
	Has(key string) (loaded bool, err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation (e.g. bad arguments).
	RetCClosed                          // 3: The store was closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
