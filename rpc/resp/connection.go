package resp

import (
	"bufio"
	"io"
	"time"

	"github.com/pkg/errors"
)

// maxEmptyReads is the number of consecutive (0, nil) reads tolerated before giving up
const maxEmptyReads = 100

// deadliner is implemented by streams that support per-operation deadlines (net.Conn)
type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Connection reads and writes frames on a byte stream.
//
// Incoming bytes are collected in an accumulation buffer until a whole frame
// is available. Decoded bytes are removed from the front of the buffer, any
// surplus bytes (the start of the next frame) stay for the next ReadFrame call.
// Outgoing frames go through a buffered writer that is flushed before
// WriteFrame returns.
//
// A Connection is not safe for concurrent use. One goroutine may read while
// another writes.
type Connection struct {
	stream io.ReadWriter
	writer *bufio.Writer
	buf    []byte // buf[:len(buf)] holds received but not yet decoded bytes
	opts   options
}

// NewConnection wraps the given stream.
func NewConnection(stream io.ReadWriter, opt ...Option) *Connection {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	checkOptions(&opts)

	return &Connection{
		stream: stream,
		writer: bufio.NewWriterSize(stream, opts.bufferSize),
		buf:    make([]byte, 0, opts.bufferSize),
		opts:   opts,
	}
}

// --------------------------------------------------------------------------
// Reading
// --------------------------------------------------------------------------

// ReadFrame returns the next frame from the stream.
//
// It returns io.EOF if the peer closed the stream cleanly between frames and
// ErrConnectionReset if it closed the stream with a partial frame buffered.
// A protocol violation yields an error wrapping ErrMalformed, a frame larger
// than the configured maximum yields ErrFrameTooLarge. All of these are final:
// the connection should be closed afterwards.
func (c *Connection) ReadFrame() (Frame, error) {
	for {
		if len(c.buf) > 0 {
			frame, n, err := DecodeNext(c.buf)
			if err == nil {
				c.consume(n)
				return frame, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				return nil, err
			}
		}

		if len(c.buf) >= c.opts.maxFrameSize {
			return nil, ErrFrameTooLarge
		}

		if err := c.fill(); err != nil {
			return nil, err
		}
	}
}

// Buffered returns the number of received bytes that are not yet decoded
func (c *Connection) Buffered() int {
	return len(c.buf)
}

// fill performs one read from the stream into the spare capacity of the buffer
func (c *Connection) fill() error {
	if len(c.buf) == cap(c.buf) {
		c.grow()
	}

	if c.opts.timeout > 0 {
		if d, ok := c.stream.(deadliner); ok {
			if err := d.SetReadDeadline(time.Now().Add(c.opts.timeout)); err != nil {
				return errors.Wrap(err, "set read deadline")
			}
		}
	}

	for empty := 0; empty < maxEmptyReads; empty++ {
		n, err := c.stream.Read(c.buf[len(c.buf):cap(c.buf)])
		if n > 0 {
			// a trailing error is reported by the next read
			c.buf = c.buf[:len(c.buf)+n]
			return nil
		}

		switch {
		case err == nil:
			continue
		case err == io.EOF:
			if len(c.buf) == 0 {
				return io.EOF
			}
			return ErrConnectionReset
		default:
			return errors.Wrap(err, "read from stream")
		}
	}
	return errors.Wrap(io.ErrNoProgress, "read from stream")
}

// grow doubles the buffer capacity, limited by the maximum frame size
func (c *Connection) grow() {
	newCap := 2 * cap(c.buf)
	if newCap == 0 {
		newCap = c.opts.bufferSize
	}
	if newCap > c.opts.maxFrameSize {
		newCap = c.opts.maxFrameSize
	}
	grown := make([]byte, len(c.buf), newCap)
	copy(grown, c.buf)
	c.buf = grown
}

// consume drops the first n bytes of the buffer. A buffer that grew for one
// large frame is shrunk back once it is mostly empty again.
func (c *Connection) consume(n int) {
	rest := copy(c.buf, c.buf[n:])
	c.buf = c.buf[:rest]

	if cap(c.buf) > 4*c.opts.bufferSize && rest <= c.opts.bufferSize {
		shrunk := make([]byte, rest, c.opts.bufferSize)
		copy(shrunk, c.buf)
		c.buf = shrunk
	}
}

// --------------------------------------------------------------------------
// Writing
// --------------------------------------------------------------------------

// WriteFrame encodes f and flushes it to the stream. When it returns nil the
// frame was handed to the transport.
//
// Array frames cannot be encoded and fail with ErrUnimplemented; in that case
// nothing is written.
func (c *Connection) WriteFrame(f Frame) error {
	if err := validateFrame(f); err != nil {
		return err
	}
	if err := c.setWriteDeadline(); err != nil {
		return err
	}
	if err := writeFrame(c.writer, f); err != nil {
		return errors.Wrap(err, "write to stream")
	}
	return c.flush()
}

// WriteCommand sends a request in the flat form used by clients: an array
// header followed by one bulk string per argument.
func (c *Connection) WriteCommand(args ...[]byte) error {
	if len(args) == 0 {
		return errors.New("resp: cannot encode empty command")
	}
	if err := c.setWriteDeadline(); err != nil {
		return err
	}
	if err := writeCommand(c.writer, args); err != nil {
		return errors.Wrap(err, "write to stream")
	}
	return c.flush()
}

// Close closes the underlying stream if it can be closed
func (c *Connection) Close() error {
	if closer, ok := c.stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Connection) flush() error {
	if err := c.writer.Flush(); err != nil {
		return errors.Wrap(err, "flush stream")
	}
	return nil
}

func (c *Connection) setWriteDeadline() error {
	if c.opts.timeout <= 0 {
		return nil
	}
	if d, ok := c.stream.(deadliner); ok {
		if err := d.SetWriteDeadline(time.Now().Add(c.opts.timeout)); err != nil {
			return errors.Wrap(err, "set write deadline")
		}
	}
	return nil
}
