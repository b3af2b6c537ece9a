package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// decimalScratchSize fits the 20 digits of the largest uint64 plus \r\n
const decimalScratchSize = 22

// --------------------------------------------------------------------------
// Public API
// --------------------------------------------------------------------------

// WriteDecimal writes n as ASCII digits followed by \r\n.
// It is used for integer values as well as for bulk length prefixes.
func WriteDecimal(w io.Writer, n uint64) error {
	var scratch [decimalScratchSize]byte
	out := strconv.AppendUint(scratch[:0], n, 10)
	out = append(out, '\r', '\n')
	_, err := w.Write(out)
	return err
}

// AppendFrame appends the wire encoding of f to dst.
// Nothing is appended if f cannot be encoded.
func AppendFrame(dst []byte, f Frame) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeFrame(w, f); err != nil {
		return dst, err
	}
	if err := w.Flush(); err != nil {
		return dst, err
	}
	return append(dst, buf.Bytes()...), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// validateFrame reports whether f can be encoded. It runs before any byte is
// written so that a rejected frame leaves the writer untouched.
func validateFrame(f Frame) error {
	switch v := f.(type) {
	case nil:
		return errors.New("resp: cannot encode nil frame")
	case Simple:
		return validateLine(string(v))
	case Error:
		return validateLine(string(v))
	case Integer, Bulk, Null:
		return nil
	case Array:
		return fmt.Errorf("%w: array frames cannot be encoded", ErrUnimplemented)
	default:
		return fmt.Errorf("%w: frame type %T", ErrUnimplemented, f)
	}
}

// validateLine rejects text that would break the line-based framing
func validateLine(text string) error {
	for i := 0; i < len(text); i++ {
		if text[i] == '\r' || text[i] == '\n' {
			return fmt.Errorf("%w: line frame contains CR or LF", ErrMalformed)
		}
	}
	return nil
}

// writeFrame encodes f into w without flushing
func writeFrame(w *bufio.Writer, f Frame) error {
	if err := validateFrame(f); err != nil {
		return err
	}

	switch v := f.(type) {
	case Simple:
		return writeLine(w, '+', string(v))
	case Error:
		return writeLine(w, '-', string(v))
	case Integer:
		if err := w.WriteByte(':'); err != nil {
			return err
		}
		return WriteDecimal(w, uint64(v))
	case Bulk:
		if err := w.WriteByte('$'); err != nil {
			return err
		}
		if err := WriteDecimal(w, uint64(len(v))); err != nil {
			return err
		}
		if _, err := w.Write(v); err != nil {
			return err
		}
		_, err := w.Write(crlf)
		return err
	case Null:
		_, err := w.WriteString("$-1\r\n")
		return err
	}
	return nil
}

func writeLine(w *bufio.Writer, prefix byte, text string) error {
	if err := w.WriteByte(prefix); err != nil {
		return err
	}
	if _, err := w.WriteString(text); err != nil {
		return err
	}
	_, err := w.Write(crlf)
	return err
}

// writeCommand encodes a request in the flat form `*N` followed by N bulk
// strings. Nested arrays are not involved, so this does not go through writeFrame.
func writeCommand(w *bufio.Writer, args [][]byte) error {
	if len(args) == 0 {
		return errors.New("resp: cannot encode empty command")
	}
	if err := w.WriteByte('*'); err != nil {
		return err
	}
	if err := WriteDecimal(w, uint64(len(args))); err != nil {
		return err
	}
	for _, arg := range args {
		if err := writeFrame(w, Bulk(arg)); err != nil {
			return err
		}
	}
	return nil
}
