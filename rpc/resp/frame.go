package resp

import (
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Frame Kinds
// --------------------------------------------------------------------------

// Kind identifies the variant of a Frame
type Kind uint8

const (
	KindSimple  Kind = iota + 1 // +<text>\r\n
	KindError                   // -<text>\r\n
	KindInteger                 // :<digits>\r\n
	KindBulk                    // $<len>\r\n<bytes>\r\n
	KindNull                    // $-1\r\n
	KindArray                   // *<count>\r\n<frames...>
)

func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	default:
		return "unknown(" + strconv.Itoa(int(k)) + ")"
	}
}

// --------------------------------------------------------------------------
// Frame Variants
// --------------------------------------------------------------------------

// Frame is one wire-protocol unit. The concrete type is one of
// Simple, Error, Integer, Bulk, Null or Array.
type Frame interface {
	// Kind returns the variant of the frame
	Kind() Kind
	// String returns a human-readable representation (for logging only)
	String() string
}

// Simple is a simple string frame
type Simple string

// Error is an error string frame. It is a value on the wire and does not
// implement the error interface.
type Error string

// Integer is an integer frame
type Integer uint64

// Bulk is a binary-safe bulk string frame
type Bulk []byte

// Null is the null bulk string frame
type Null struct{}

// Array is a sequence of frames. It can be decoded but not encoded.
type Array []Frame

func (Simple) Kind() Kind  { return KindSimple }
func (Error) Kind() Kind   { return KindError }
func (Integer) Kind() Kind { return KindInteger }
func (Bulk) Kind() Kind    { return KindBulk }
func (Null) Kind() Kind    { return KindNull }
func (Array) Kind() Kind   { return KindArray }

func (f Simple) String() string  { return string(f) }
func (f Error) String() string   { return "error: " + string(f) }
func (f Integer) String() string { return strconv.FormatUint(uint64(f), 10) }
func (f Bulk) String() string    { return strconv.Quote(string(f)) }
func (Null) String() string      { return "(nil)" }

func (f Array) String() string {
	parts := make([]string, len(f))
	for i, entry := range f {
		if entry == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = entry.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
