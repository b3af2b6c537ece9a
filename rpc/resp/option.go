package resp

import "time"

// Default connection settings.
const (
	// DefaultBufferSize is the initial capacity of the accumulation buffer (4 KiB)
	DefaultBufferSize = 4 * 1024
	// DefaultMaxFrameSize is the largest frame a connection will buffer (512 MiB)
	DefaultMaxFrameSize = 512 * 1024 * 1024
)

// options holds the configuration of a Connection.
type options struct {
	bufferSize   int           // initial capacity of the read buffer
	maxFrameSize int           // upper bound for buffered, not yet decoded bytes
	timeout      time.Duration // read/write deadline per operation, 0 disables
}

// Option configures a Connection.
type Option func(*options)

// BufferSizeOption sets the initial capacity of the accumulation buffer.
// The buffer grows on demand up to the maximum frame size.
func BufferSizeOption(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// MaxFrameSizeOption sets the maximum number of bytes a single frame may occupy.
// Reading a frame larger than this fails with ErrFrameTooLarge.
func MaxFrameSizeOption(size int) Option {
	return func(o *options) {
		o.maxFrameSize = size
	}
}

// TimeoutOption sets a deadline for every read and write on the stream.
// It only has an effect if the stream supports deadlines (e.g. net.Conn).
func TimeoutOption(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// checkOptions fills in defaults for unset values
func checkOptions(opts *options) {
	if opts.maxFrameSize <= 0 {
		opts.maxFrameSize = DefaultMaxFrameSize
	}
	if opts.bufferSize <= 0 {
		opts.bufferSize = DefaultBufferSize
	}
	if opts.bufferSize > opts.maxFrameSize {
		opts.bufferSize = opts.maxFrameSize
	}
	if opts.timeout < 0 {
		opts.timeout = 0
	}
}
