package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/resp"
)

// Command is a parsed request that can be executed against a store.
type Command interface {
	// Name returns the lower case command name
	Name() string
	// Args returns the request in wire form, the command name first
	Args() [][]byte
	// Apply executes the command and returns the response frame.
	// Store failures are reported as error frames.
	Apply(s store.IStore) resp.Frame
}

// FromFrame parses a request frame into a Command.
//
// The frame must be an array whose first element names the command. An unknown
// name yields an *Unknown command (which responds with an error), malformed
// arguments of a known command yield an error wrapping ErrProtocol or ErrSyntax.
func FromFrame(frame resp.Frame) (Command, error) {
	p, err := newParser(frame)
	if err != nil {
		return nil, err
	}

	name, err := p.nextString()
	if err != nil {
		return nil, err
	}
	p.cmd = strings.ToLower(name)

	var cmd Command
	switch p.cmd {
	case "get":
		cmd, err = parseGet(p)
	case "set":
		cmd, err = parseSet(p)
	case "del":
		cmd, err = parseDel(p)
	case "exists":
		cmd, err = parseExists(p)
	case "ping":
		cmd, err = parsePing(p)
	default:
		return &Unknown{Cmd: name}, nil
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

// ErrorFrame converts an error into the error frame sent to clients
func ErrorFrame(err error) resp.Frame {
	msg := strings.NewReplacer("\r", " ", "\n", " ").Replace(err.Error())
	return resp.Error("ERR " + strings.ToValidUTF8(msg, "?"))
}

// --------------------------------------------------------------------------
// GET key
// --------------------------------------------------------------------------

// Get returns the value of a key, or Null if the key does not exist
type Get struct {
	Key string
}

func parseGet(p *parser) (*Get, error) {
	key, err := p.nextString()
	if err != nil {
		return nil, err
	}
	return &Get{Key: key}, p.finish()
}

func (c *Get) Name() string { return "get" }

func (c *Get) Args() [][]byte {
	return [][]byte{[]byte("GET"), []byte(c.Key)}
}

func (c *Get) Apply(s store.IStore) resp.Frame {
	value, loaded, err := s.Get(c.Key)
	if err != nil {
		return ErrorFrame(err)
	}
	if !loaded {
		return resp.Null{}
	}
	return resp.Bulk(value)
}

// --------------------------------------------------------------------------
// SET key value [EX seconds|PX milliseconds]
// --------------------------------------------------------------------------

// Set stores a value, optionally with an expiry. Expire is zero for values that do not expire.
type Set struct {
	Key    string
	Value  []byte
	Expire time.Duration
}

func parseSet(p *parser) (*Set, error) {
	key, err := p.nextString()
	if err != nil {
		return nil, err
	}
	value, err := p.nextBytes()
	if err != nil {
		return nil, err
	}
	cmd := &Set{Key: key, Value: value}

	for p.remaining() > 0 {
		opt, err := p.nextString()
		if err != nil {
			return nil, err
		}

		var unit time.Duration
		switch strings.ToUpper(opt) {
		case "EX":
			unit = time.Second
		case "PX":
			unit = time.Millisecond
		default:
			return nil, fmt.Errorf("%w: unsupported option '%s' for 'set' command", ErrSyntax, opt)
		}
		if cmd.Expire != 0 {
			return nil, fmt.Errorf("%w: only one of EX and PX may be given", ErrSyntax)
		}

		n, err := p.nextInt()
		if err != nil {
			return nil, err
		}
		if n == 0 || n > uint64(math.MaxInt64/int64(unit)) {
			return nil, fmt.Errorf("%w: invalid expire time in 'set' command", ErrSyntax)
		}
		cmd.Expire = time.Duration(n) * unit
	}
	return cmd, nil
}

func (c *Set) Name() string { return "set" }

func (c *Set) Args() [][]byte {
	args := [][]byte{[]byte("SET"), []byte(c.Key), c.Value}
	switch {
	case c.Expire <= 0:
	case c.Expire%time.Second == 0:
		args = append(args, []byte("EX"), []byte(strconv.FormatInt(int64(c.Expire/time.Second), 10)))
	default:
		// sub millisecond precision is rounded up so the key never expires early
		ms := (c.Expire + time.Millisecond - 1) / time.Millisecond
		args = append(args, []byte("PX"), []byte(strconv.FormatInt(int64(ms), 10)))
	}
	return args
}

func (c *Set) Apply(s store.IStore) resp.Frame {
	var err error
	if c.Expire > 0 {
		err = s.SetE(c.Key, c.Value, c.Expire)
	} else {
		err = s.Set(c.Key, c.Value)
	}
	if err != nil {
		return ErrorFrame(err)
	}
	return resp.Simple("OK")
}

// --------------------------------------------------------------------------
// DEL key [key ...]
// --------------------------------------------------------------------------

// Del removes keys and responds with the number of keys that existed
type Del struct {
	Keys []string
}

func parseDel(p *parser) (*Del, error) {
	keys, err := parseKeys(p)
	if err != nil {
		return nil, err
	}
	return &Del{Keys: keys}, nil
}

func (c *Del) Name() string { return "del" }

func (c *Del) Args() [][]byte {
	return keyArgs("DEL", c.Keys)
}

func (c *Del) Apply(s store.IStore) resp.Frame {
	var count uint64
	for _, key := range c.Keys {
		deleted, err := s.Delete(key)
		if err != nil {
			return ErrorFrame(err)
		}
		if deleted {
			count++
		}
	}
	return resp.Integer(count)
}

// --------------------------------------------------------------------------
// EXISTS key [key ...]
// --------------------------------------------------------------------------

// Exists responds with the number of given keys that exist. A key named twice counts twice.
type Exists struct {
	Keys []string
}

func parseExists(p *parser) (*Exists, error) {
	keys, err := parseKeys(p)
	if err != nil {
		return nil, err
	}
	return &Exists{Keys: keys}, nil
}

func (c *Exists) Name() string { return "exists" }

func (c *Exists) Args() [][]byte {
	return keyArgs("EXISTS", c.Keys)
}

func (c *Exists) Apply(s store.IStore) resp.Frame {
	var count uint64
	for _, key := range c.Keys {
		has, err := s.Has(key)
		if err != nil {
			return ErrorFrame(err)
		}
		if has {
			count++
		}
	}
	return resp.Integer(count)
}

// --------------------------------------------------------------------------
// PING [message]
// --------------------------------------------------------------------------

// Ping responds with PONG, or echoes the message if one is given
type Ping struct {
	Msg []byte // nil for a plain PING
}

func parsePing(p *parser) (*Ping, error) {
	cmd := &Ping{}
	if p.remaining() > 0 {
		msg, err := p.nextBytes()
		if err != nil {
			return nil, err
		}
		cmd.Msg = msg
	}
	return cmd, p.finish()
}

func (c *Ping) Name() string { return "ping" }

func (c *Ping) Args() [][]byte {
	if c.Msg == nil {
		return [][]byte{[]byte("PING")}
	}
	return [][]byte{[]byte("PING"), c.Msg}
}

func (c *Ping) Apply(store.IStore) resp.Frame {
	if c.Msg == nil {
		return resp.Simple("PONG")
	}
	return resp.Bulk(c.Msg)
}

// --------------------------------------------------------------------------
// Unknown
// --------------------------------------------------------------------------

// Unknown is any command this server does not implement
type Unknown struct {
	Cmd string
}

func (c *Unknown) Name() string { return strings.ToLower(c.Cmd) }

func (c *Unknown) Args() [][]byte {
	return [][]byte{[]byte(c.Cmd)}
}

func (c *Unknown) Apply(store.IStore) resp.Frame {
	return ErrorFrame(fmt.Errorf("unknown command '%s'", c.Cmd))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func parseKeys(p *parser) ([]string, error) {
	if p.remaining() == 0 {
		return nil, p.wrongArity()
	}
	keys := make([]string, 0, p.remaining())
	for p.remaining() > 0 {
		key, err := p.nextString()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func keyArgs(name string, keys []string) [][]byte {
	args := make([][]byte, 0, len(keys)+1)
	args = append(args, []byte(name))
	for _, key := range keys {
		args = append(args, []byte(key))
	}
	return args
}
