package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/lib/store/lstore"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
)

// startServer runs a server on a random local port until the test ends
func startServer(t *testing.T, modify func(*common.ServerConfig)) *RPCServer {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Transport.Endpoint = "127.0.0.1:0"
	config.ShutdownTimeout = time.Second
	if modify != nil {
		modify(&config)
	}

	s, err := NewRPCServer(config, nil)
	if err != nil {
		t.Fatalf("NewRPCServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()

	select {
	case <-s.Ready():
	case err := <-errCh:
		cancel()
		t.Fatalf("Serve failed: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("Server did not start")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Serve returned error: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})

	return s
}

func dial(t *testing.T, s *RPCServer) *resp.Connection {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	c := resp.NewConnection(conn, resp.TimeoutOption(5*time.Second))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func do(t *testing.T, c *resp.Connection, args ...string) resp.Frame {
	t.Helper()
	raw := make([][]byte, len(args))
	for i, arg := range args {
		raw[i] = []byte(arg)
	}
	if err := c.WriteCommand(raw...); err != nil {
		t.Fatalf("WriteCommand failed: %v", err)
	}
	res, err := c.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	return res
}

func TestNewRPCServerInvalidConfig(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Dispatch = common.DispatchPool
	config.Workers = 0
	if _, err := NewRPCServer(config, nil); err == nil {
		t.Fatal("Expected error for pool without workers")
	}
}

func TestCommands(t *testing.T) {
	for _, mode := range []common.DispatchMode{common.DispatchGoroutine, common.DispatchPool} {
		t.Run(string(mode), func(t *testing.T) {
			s := startServer(t, func(c *common.ServerConfig) { c.Dispatch = mode })
			c := dial(t, s)

			tests := []struct {
				args []string
				want resp.Frame
			}{
				{[]string{"PING"}, resp.Simple("PONG")},
				{[]string{"ping", "hello"}, resp.Bulk("hello")},
				{[]string{"GET", "k"}, resp.Null{}},
				{[]string{"SET", "k", "v"}, resp.Simple("OK")},
				{[]string{"GET", "k"}, resp.Bulk("v")},
				{[]string{"SET", "k2", "v2"}, resp.Simple("OK")},
				{[]string{"EXISTS", "k", "k2", "missing"}, resp.Integer(2)},
				{[]string{"DEL", "k", "missing"}, resp.Integer(1)},
				{[]string{"GET", "k"}, resp.Null{}},
			}

			for _, tc := range tests {
				res := do(t, c, tc.args...)
				if res.String() != tc.want.String() || res.Kind() != tc.want.Kind() {
					t.Errorf("%v: expected %v, got %v", tc.args, tc.want, res)
				}
			}
		})
	}
}

func TestCommandErrorsKeepConnection(t *testing.T) {
	s := startServer(t, nil)
	c := dial(t, s)

	for _, args := range [][]string{
		{"FLUSHALL"},
		{"GET"},
		{"SET", "k", "v", "EX", "0"},
		{"SET", "k", "v", "PX", "abc"},
	} {
		res := do(t, c, args...)
		if e, ok := res.(resp.Error); !ok || !strings.HasPrefix(string(e), "ERR ") {
			t.Errorf("%v: expected error frame, got %v", args, res)
		}
	}

	if res := do(t, c, "PING"); res != resp.Simple("PONG") {
		t.Fatalf("Connection should still be usable, got %v", res)
	}

	if got := s.commandErrors.Get(); got != 4 {
		t.Errorf("Expected 4 command errors, got %d", got)
	}
}

func TestExpiry(t *testing.T) {
	s := startServer(t, func(c *common.ServerConfig) { c.ExpiryInterval = 10 * time.Millisecond })
	c := dial(t, s)

	if res := do(t, c, "SET", "k", "v", "PX", "50"); res != resp.Simple("OK") {
		t.Fatalf("SET failed: %v", res)
	}
	if res := do(t, c, "GET", "k"); res.Kind() != resp.KindBulk {
		t.Fatalf("Expected value before the deadline, got %v", res)
	}

	time.Sleep(150 * time.Millisecond)

	if res := do(t, c, "GET", "k"); res.Kind() != resp.KindNull {
		t.Fatalf("Expected Null after the deadline, got %v", res)
	}
	if n := s.Store().(*lstore.LocalStore).Len(); n != 0 {
		t.Errorf("Expected the sweep to purge the key, %d keys left", n)
	}
}

func TestShutdownClosesConnectionsBeforeStore(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Transport.Endpoint = "127.0.0.1:0"
	config.ShutdownTimeout = 100 * time.Millisecond

	s, err := NewRPCServer(config, nil)
	if err != nil {
		t.Fatalf("NewRPCServer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx) }()

	select {
	case <-s.Ready():
	case err := <-errCh:
		t.Fatalf("Serve failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not start")
	}

	c := dial(t, s)
	if res := do(t, c, "SET", "k", "v"); res != resp.Simple("OK") {
		t.Fatalf("Expected OK, got %v", res)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	// the store is closed now, the connection must not be answered from it
	if err := c.WriteCommand([]byte("GET"), []byte("k")); err == nil {
		if res, err := c.ReadFrame(); err == nil {
			t.Fatalf("Expected the connection to be closed, got %v", res)
		}
	}
}

func TestSharedStore(t *testing.T) {
	s := startServer(t, nil)
	a, b := dial(t, s), dial(t, s)

	do(t, a, "SET", "shared", "from-a")
	if res := do(t, b, "GET", "shared"); res.String() != resp.Bulk("from-a").String() {
		t.Fatalf("Expected value written by the other connection, got %v", res)
	}
}

func TestMetricsServer(t *testing.T) {
	s := startServer(t, func(c *common.ServerConfig) {
		c.Dispatch = common.DispatchPool
		c.MetricsEndpoint = "127.0.0.1:0"
	})
	c := dial(t, s)
	do(t, c, "SET", "k", "v")
	do(t, c, "GET", "k")

	// the metrics server starts next to the transport
	deadline := time.Now().Add(5 * time.Second)
	for s.MetricsAddr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("Metrics server did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	url := "http://" + s.MetricsAddr().String()

	res, err := http.Get(url + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()

	for _, want := range []string{
		`rkv_commands_total{command="set"} 1`,
		`rkv_commands_total{command="get"} 1`,
		"rkv_server_connections_active 1",
		"rkv_pool_workers_alive 4",
		"rkv_store_keys 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %q in metrics output:\n%s", want, body)
		}
	}

	res, err = http.Get(url + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("Expected healthy server, got %d", res.StatusCode)
	}
}
