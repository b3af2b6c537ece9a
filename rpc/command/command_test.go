package command

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/lib/store/lstore"
	"github.com/ValentinKolb/rKV/rpc/resp"
)

// request builds a request array of bulk strings
func request(args ...string) resp.Frame {
	frame := make(resp.Array, len(args))
	for i, arg := range args {
		frame[i] = resp.Bulk(arg)
	}
	return frame
}

// exec parses and applies a request against s
func exec(t *testing.T, s *lstore.LocalStore, args ...string) resp.Frame {
	t.Helper()
	cmd, err := FromFrame(request(args...))
	if err != nil {
		t.Fatalf("FromFrame(%v) failed: %v", args, err)
	}
	return cmd.Apply(s)
}

func expectFrame(t *testing.T, got, want resp.Frame) {
	t.Helper()
	if got.Kind() != want.Kind() || got.String() != want.String() {
		t.Errorf("Expected %v (%s), got %v (%s)", want, want.Kind(), got, got.Kind())
	}
}

// TestFromFrame tests that requests are parsed into the right command values
func TestFromFrame(t *testing.T) {
	tests := []struct {
		name string
		req  resp.Frame
		want Command
	}{
		{"get", request("GET", "k"), &Get{Key: "k"}},
		{"lower case", request("get", "k"), &Get{Key: "k"}},
		{"set", request("SET", "k", "v"), &Set{Key: "k", Value: []byte("v")}},
		{"set ex", request("SET", "k", "v", "EX", "10"), &Set{Key: "k", Value: []byte("v"), Expire: 10 * time.Second}},
		{"set px", request("set", "k", "v", "px", "250"), &Set{Key: "k", Value: []byte("v"), Expire: 250 * time.Millisecond}},
		{"del", request("DEL", "a", "b"), &Del{Keys: []string{"a", "b"}}},
		{"exists", request("EXISTS", "a"), &Exists{Keys: []string{"a"}}},
		{"ping", request("PING"), &Ping{}},
		{"ping message", request("PING", "hi"), &Ping{Msg: []byte("hi")}},
		{"simple frames", resp.Array{resp.Simple("GET"), resp.Simple("k")}, &Get{Key: "k"}},
		{"integer expiry", resp.Array{resp.Bulk("SET"), resp.Bulk("k"), resp.Bulk("v"), resp.Bulk("EX"), resp.Integer(3)},
			&Set{Key: "k", Value: []byte("v"), Expire: 3 * time.Second}},
		{"unknown", request("FLUSHALL"), &Unknown{Cmd: "FLUSHALL"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := FromFrame(tc.req)
			if err != nil {
				t.Fatalf("FromFrame failed: %v", err)
			}
			if cmd.Name() != tc.want.Name() {
				t.Errorf("Expected command %s, got %s", tc.want.Name(), cmd.Name())
			}
			if !equalArgs(cmd.Args(), tc.want.Args()) {
				t.Errorf("Expected args %q, got %q", tc.want.Args(), cmd.Args())
			}
		})
	}
}

// TestFromFrameErrors tests that malformed requests are rejected
func TestFromFrameErrors(t *testing.T) {
	tests := []struct {
		name string
		req  resp.Frame
		want error
	}{
		{"not an array", resp.Simple("GET"), ErrProtocol},
		{"bulk request", resp.Bulk("GET k"), ErrProtocol},
		{"empty array", resp.Array{}, ErrProtocol},
		{"integer name", resp.Array{resp.Integer(1)}, ErrProtocol},
		{"get without key", request("GET"), ErrSyntax},
		{"get with extra", request("GET", "a", "b"), ErrSyntax},
		{"set without value", request("SET", "k"), ErrSyntax},
		{"set bad option", request("SET", "k", "v", "KEEPTTL"), ErrSyntax},
		{"set ex without value", request("SET", "k", "v", "EX"), ErrSyntax},
		{"set ex not a number", request("SET", "k", "v", "EX", "soon"), ErrSyntax},
		{"set ex zero", request("SET", "k", "v", "EX", "0"), ErrSyntax},
		{"set ex overflow", request("SET", "k", "v", "EX", "99999999999999"), ErrSyntax},
		{"set ex and px", request("SET", "k", "v", "EX", "1", "PX", "5"), ErrSyntax},
		{"del without key", request("DEL"), ErrSyntax},
		{"exists without key", request("EXISTS"), ErrSyntax},
		{"ping too many", request("PING", "a", "b"), ErrSyntax},
		{"nested array key", resp.Array{resp.Bulk("GET"), resp.Array{}}, ErrProtocol},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := FromFrame(tc.req)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v (cmd=%v)", tc.want, err, cmd)
			}
		})
	}
}

// TestArgsRoundTrip tests that the wire form of a command parses back into the same command
func TestArgsRoundTrip(t *testing.T) {
	commands := []Command{
		&Get{Key: "k"},
		&Set{Key: "k", Value: []byte("a\r\nb")},
		&Set{Key: "k", Value: []byte("v"), Expire: 2 * time.Second},
		&Set{Key: "k", Value: []byte("v"), Expire: 1500 * time.Millisecond},
		&Del{Keys: []string{"a", "b", "c"}},
		&Exists{Keys: []string{"x"}},
		&Ping{},
		&Ping{Msg: []byte("hello")},
	}

	for _, cmd := range commands {
		args := make([]string, 0)
		for _, arg := range cmd.Args() {
			args = append(args, string(arg))
		}
		parsed, err := FromFrame(request(args...))
		if err != nil {
			t.Fatalf("FromFrame(%q) failed: %v", args, err)
		}
		if !equalArgs(parsed.Args(), cmd.Args()) {
			t.Errorf("Round trip changed args: %q -> %q", cmd.Args(), parsed.Args())
		}
	}

	// sub millisecond expiries are rounded up
	set := &Set{Key: "k", Value: []byte("v"), Expire: 1500 * time.Microsecond}
	if got := string(set.Args()[4]); got != "2" {
		t.Errorf("Expected PX 2, got PX %s", got)
	}
}

// TestApply tests command execution against a local store
func TestApply(t *testing.T) {
	s := lstore.NewLocalStore(nil)
	defer s.Close()

	expectFrame(t, exec(t, s, "PING"), resp.Simple("PONG"))
	expectFrame(t, exec(t, s, "PING", "hello"), resp.Bulk("hello"))

	expectFrame(t, exec(t, s, "GET", "k"), resp.Null{})
	expectFrame(t, exec(t, s, "SET", "k", "v"), resp.Simple("OK"))
	expectFrame(t, exec(t, s, "GET", "k"), resp.Bulk("v"))

	expectFrame(t, exec(t, s, "SET", "other", "x"), resp.Simple("OK"))
	expectFrame(t, exec(t, s, "EXISTS", "k", "other", "missing", "k"), resp.Integer(3))
	expectFrame(t, exec(t, s, "DEL", "k", "missing"), resp.Integer(1))
	expectFrame(t, exec(t, s, "GET", "k"), resp.Null{})

	unknown := exec(t, s, "FLUSHALL")
	if unknown.Kind() != resp.KindError || !strings.Contains(unknown.String(), "unknown command 'FLUSHALL'") {
		t.Errorf("Expected unknown command error, got %v", unknown)
	}
}

// TestApplyExpiry tests SET with PX against a local store
func TestApplyExpiry(t *testing.T) {
	s := lstore.NewLocalStore(nil)
	defer s.Close()

	expectFrame(t, exec(t, s, "SET", "k", "v", "PX", "30"), resp.Simple("OK"))
	expectFrame(t, exec(t, s, "GET", "k"), resp.Bulk("v"))

	time.Sleep(100 * time.Millisecond)
	expectFrame(t, exec(t, s, "GET", "k"), resp.Null{})
}

// TestApplyStoreError tests that store failures become error frames
func TestApplyStoreError(t *testing.T) {
	s := lstore.NewLocalStore(nil)
	_ = s.Close()

	got := exec(t, s, "GET", "k")
	if got.Kind() != resp.KindError || !strings.HasPrefix(string(got.(resp.Error)), "ERR ") {
		t.Errorf("Expected ERR frame, got %v", got)
	}
}

// TestErrorFrame tests that error frames are always encodable
func TestErrorFrame(t *testing.T) {
	frame := ErrorFrame(errors.New("bad\r\ninput \xff"))
	if _, err := resp.AppendFrame(nil, frame); err != nil {
		t.Errorf("Error frame should be encodable, got %v", err)
	}

	unknown := (&Unknown{Cmd: "x\r\ny"}).Apply(nil)
	if _, err := resp.AppendFrame(nil, unknown); err != nil {
		t.Errorf("Unknown command reply should be encodable, got %v", err)
	}
}

func equalArgs(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
