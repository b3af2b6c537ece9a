package resp

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

const (
	// MaxBulkLength is the largest bulk string accepted on the wire (512 MB)
	MaxBulkLength = 512 * 1024 * 1024
	// maxNestingDepth bounds the recursion of nested arrays
	maxNestingDepth = 32
)

var crlf = []byte("\r\n")

// --------------------------------------------------------------------------
// Public API
// --------------------------------------------------------------------------

// DecodeNext tries to decode the first frame in buf.
//
// It returns the frame and the number of bytes it occupies on success,
// ErrIncomplete if buf only holds a prefix of a frame (this includes an empty buf),
// or an error wrapping ErrMalformed if the bytes can never form a valid frame.
//
// Decoding runs in two passes: Check measures the frame without allocating,
// and only if it succeeds Parse builds the value from the start again.
func DecodeNext(buf []byte) (Frame, int, error) {
	n, err := Check(buf)
	if err != nil {
		return nil, 0, err
	}

	// the check pass guarantees that buf[:n] holds exactly one valid frame
	frame, _, err := Parse(buf[:n])
	if err != nil {
		return nil, 0, err
	}
	return frame, n, nil
}

// Check scans buf and reports how many bytes the first frame occupies,
// without building the frame.
func Check(buf []byte) (int, error) {
	c := &cursor{buf: buf}
	if err := c.check(0); err != nil {
		return 0, err
	}
	return c.pos, nil
}

// Parse builds the first frame in buf. Bulk payloads are copied, so the
// returned frame does not alias buf.
func Parse(buf []byte) (Frame, int, error) {
	c := &cursor{buf: buf}
	frame, err := c.parse(0)
	if err != nil {
		return nil, 0, err
	}
	return frame, c.pos, nil
}

// --------------------------------------------------------------------------
// Cursor
// --------------------------------------------------------------------------

// cursor walks over a byte slice. All reads past the end return ErrIncomplete.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) peekU8() (byte, error) {
	if c.remaining() < 1 {
		return 0, ErrIncomplete
	}
	return c.buf[c.pos], nil
}

func (c *cursor) getU8() (byte, error) {
	b, err := c.peekU8()
	if err != nil {
		return 0, err
	}
	c.pos++
	return b, nil
}

func (c *cursor) skip(n int) error {
	if c.remaining() < n {
		return ErrIncomplete
	}
	c.pos += n
	return nil
}

// getLine returns the bytes up to the next \r\n and moves past the terminator
func (c *cursor) getLine() ([]byte, error) {
	idx := bytes.Index(c.buf[c.pos:], crlf)
	if idx < 0 {
		return nil, ErrIncomplete
	}
	line := c.buf[c.pos : c.pos+idx]
	c.pos += idx + len(crlf)
	return line, nil
}

// getDecimal reads a line and interprets it as an unsigned decimal number.
// Only the canonical form is accepted, so that re-encoding yields the same bytes.
func (c *cursor) getDecimal() (uint64, error) {
	line, err := c.getLine()
	if err != nil {
		return 0, err
	}
	if len(line) > 1 && line[0] == '0' {
		return 0, fmt.Errorf("%w: leading zero in decimal %q", ErrMalformed, line)
	}
	n, err := strconv.ParseUint(string(line), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid decimal %q", ErrMalformed, line)
	}
	return n, nil
}

// getText reads a line that must be valid UTF-8 (simple and error strings)
func (c *cursor) getText() ([]byte, error) {
	line, err := c.getLine()
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(line) {
		return nil, fmt.Errorf("%w: text is not valid utf-8", ErrMalformed)
	}
	return line, nil
}

// getBulkLength reads the length line of a bulk string. A length of -1 means Null.
func (c *cursor) getBulkLength() (length int, null bool, err error) {
	b, err := c.peekU8()
	if err != nil {
		return 0, false, err
	}

	if b == '-' {
		line, err := c.getLine()
		if err != nil {
			return 0, false, err
		}
		if string(line) != "-1" {
			return 0, false, fmt.Errorf("%w: invalid bulk length %q", ErrMalformed, line)
		}
		return 0, true, nil
	}

	n, err := c.getDecimal()
	if err != nil {
		return 0, false, err
	}
	if n > MaxBulkLength {
		return 0, false, fmt.Errorf("%w: bulk length %d exceeds %d", ErrMalformed, n, MaxBulkLength)
	}
	return int(n), false, nil
}

// getArrayLength reads the element count of an array
func (c *cursor) getArrayLength() (int, error) {
	n, err := c.getDecimal()
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: array length %d too large", ErrMalformed, n)
	}
	return int(n), nil
}

// expectCRLF consumes the terminator after a bulk payload
func (c *cursor) expectCRLF() error {
	if c.remaining() < len(crlf) {
		return ErrIncomplete
	}
	if !bytes.Equal(c.buf[c.pos:c.pos+len(crlf)], crlf) {
		return fmt.Errorf("%w: bulk payload not terminated by CRLF", ErrMalformed)
	}
	c.pos += len(crlf)
	return nil
}

// --------------------------------------------------------------------------
// Check pass
// --------------------------------------------------------------------------

func (c *cursor) check(depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("%w: arrays nested deeper than %d", ErrMalformed, maxNestingDepth)
	}

	typ, err := c.getU8()
	if err != nil {
		return err
	}

	switch typ {
	case '+', '-':
		_, err = c.getText()
		return err
	case ':':
		_, err = c.getDecimal()
		return err
	case '$':
		n, null, err := c.getBulkLength()
		if err != nil || null {
			return err
		}
		if err := c.skip(n); err != nil {
			return err
		}
		return c.expectCRLF()
	case '*':
		n, err := c.getArrayLength()
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := c.check(depth + 1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: invalid frame type byte `%d`", ErrMalformed, typ)
	}
}

// --------------------------------------------------------------------------
// Parse pass
// --------------------------------------------------------------------------

func (c *cursor) parse(depth int) (Frame, error) {
	if depth > maxNestingDepth {
		return nil, fmt.Errorf("%w: arrays nested deeper than %d", ErrMalformed, maxNestingDepth)
	}

	typ, err := c.getU8()
	if err != nil {
		return nil, err
	}

	switch typ {
	case '+':
		text, err := c.getText()
		if err != nil {
			return nil, err
		}
		return Simple(text), nil
	case '-':
		text, err := c.getText()
		if err != nil {
			return nil, err
		}
		return Error(text), nil
	case ':':
		n, err := c.getDecimal()
		if err != nil {
			return nil, err
		}
		return Integer(n), nil
	case '$':
		n, null, err := c.getBulkLength()
		if err != nil {
			return nil, err
		}
		if null {
			return Null{}, nil
		}
		if c.remaining() < n {
			return nil, ErrIncomplete
		}
		data := make([]byte, n)
		copy(data, c.buf[c.pos:c.pos+n])
		c.pos += n
		if err := c.expectCRLF(); err != nil {
			return nil, err
		}
		return Bulk(data), nil
	case '*':
		n, err := c.getArrayLength()
		if err != nil {
			return nil, err
		}
		// every element needs at least three bytes, so remaining() bounds n
		frames := make(Array, 0, min(n, c.remaining()))
		for i := 0; i < n; i++ {
			entry, err := c.parse(depth + 1)
			if err != nil {
				return nil, err
			}
			frames = append(frames, entry)
		}
		return frames, nil
	default:
		return nil, fmt.Errorf("%w: invalid frame type byte `%d`", ErrMalformed, typ)
	}
}
