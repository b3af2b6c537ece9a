package command

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ValentinKolb/rKV/rpc/resp"
)

var (
	// ErrProtocol is returned when a request frame does not have the shape of a command
	ErrProtocol = errors.New("protocol error")
	// ErrSyntax is returned when the arguments of a known command are invalid
	ErrSyntax = errors.New("syntax error")
)

// parser walks over the elements of a request array
type parser struct {
	parts resp.Array
	pos   int
	cmd   string // command name, used in error messages
}

func newParser(frame resp.Frame) (*parser, error) {
	parts, ok := frame.(resp.Array)
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrProtocol, kindOf(frame))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrProtocol)
	}
	return &parser{parts: parts}, nil
}

func (p *parser) remaining() int {
	return len(p.parts) - p.pos
}

func (p *parser) next() (resp.Frame, error) {
	if p.remaining() == 0 {
		return nil, p.wrongArity()
	}
	f := p.parts[p.pos]
	p.pos++
	return f, nil
}

// nextBytes returns the next element as raw bytes. Simple and Bulk frames are accepted.
func (p *parser) nextBytes() ([]byte, error) {
	f, err := p.next()
	if err != nil {
		return nil, err
	}
	switch v := f.(type) {
	case resp.Bulk:
		return []byte(v), nil
	case resp.Simple:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("%w: expected simple or bulk frame, got %s", ErrProtocol, kindOf(f))
	}
}

func (p *parser) nextString() (string, error) {
	b, err := p.nextBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// nextInt returns the next element as an unsigned integer. Integer frames are
// accepted as well as Simple and Bulk frames holding decimal digits.
func (p *parser) nextInt() (uint64, error) {
	f, err := p.next()
	if err != nil {
		return 0, err
	}
	switch v := f.(type) {
	case resp.Integer:
		return uint64(v), nil
	case resp.Simple:
		return parseUint(string(v))
	case resp.Bulk:
		return parseUint(string(v))
	default:
		return 0, fmt.Errorf("%w: expected integer, got %s", ErrProtocol, kindOf(f))
	}
}

// finish makes sure every element was consumed
func (p *parser) finish() error {
	if p.remaining() != 0 {
		return p.wrongArity()
	}
	return nil
}

func (p *parser) wrongArity() error {
	return fmt.Errorf("%w: wrong number of arguments for '%s' command", ErrSyntax, p.cmd)
}

func parseUint(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value is not an integer or out of range", ErrSyntax)
	}
	return n, nil
}

func kindOf(f resp.Frame) string {
	if f == nil {
		return "nil"
	}
	return f.Kind().String()
}
