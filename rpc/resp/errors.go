package resp

import "errors"

// Errors returned by the codec and the connection.
//
// ErrIncomplete is not a failure: it only tells the caller that more bytes are
// needed. Every other error is fatal for the connection that produced it.
var (
	// ErrIncomplete is returned when the buffer does not yet hold a whole frame.
	ErrIncomplete = errors.New("resp: incomplete frame")
	// ErrMalformed is returned when the buffered bytes can never form a valid frame.
	ErrMalformed = errors.New("resp: protocol error; invalid frame format")
	// ErrConnectionReset is returned when the peer closes the stream in the middle of a frame.
	ErrConnectionReset = errors.New("resp: connection reset by peer")
	// ErrUnimplemented is returned when encoding a frame shape this codec does not support.
	ErrUnimplemented = errors.New("resp: unimplemented frame encoding")
	// ErrFrameTooLarge is returned when a single frame would exceed the configured maximum size.
	ErrFrameTooLarge = errors.New("resp: frame too large")
)
