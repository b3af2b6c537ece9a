package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/lib/store"
	storetesting "github.com/ValentinKolb/rKV/lib/store/testing"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/server"
)

// startServer runs an in-process server with its own store until the test ends
func startServer(t *testing.T) string {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Transport.Endpoint = "127.0.0.1:0"
	config.ShutdownTimeout = time.Second

	s, err := server.NewRPCServer(config, nil)
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
		case <-errCh:
		case <-time.After(10 * time.Second):
			t.Error("Serve did not return after cancel")
		}
	})

	return s.Addr().String()
}

func newStore(t *testing.T, addr string) *RPCStore {
	t.Helper()

	config := common.DefaultClientConfig()
	config.Endpoints = []string{addr}

	transport, err := NewClientTransport(config.Transport)
	if err != nil {
		t.Fatalf("NewClientTransport failed: %v", err)
	}
	s, err := NewRPCStore(config, transport)
	if err != nil {
		t.Fatalf("NewRPCStore failed: %v", err)
	}
	return s
}

func TestRPCStore(t *testing.T) {
	// every store gets a fresh server, so each test starts empty
	storetesting.RunIStoreTests(t, "RPCStore", func() store.IStore {
		return newStore(t, startServer(t))
	})
}

func TestRPCStorePing(t *testing.T) {
	s := newStore(t, startServer(t))
	defer s.Close()

	if res, err := s.Ping(""); err != nil || res != "PONG" {
		t.Errorf("Expected PONG, got %q (%v)", res, err)
	}
	if res, err := s.Ping("hello"); err != nil || res != "hello" {
		t.Errorf("Expected echo, got %q (%v)", res, err)
	}
}

func TestRPCStoreInvalidExpiry(t *testing.T) {
	s := newStore(t, startServer(t))
	defer s.Close()

	err := s.SetE("key", []byte("value"), -time.Second)
	var storeErr *store.Error
	if !errors.As(err, &storeErr) || storeErr.Code != store.RetCInvalidOperation {
		t.Fatalf("Expected invalid operation error, got %v", err)
	}
}

func TestNewRPCStoreUnreachable(t *testing.T) {
	config := common.DefaultClientConfig()
	config.Endpoints = []string{"127.0.0.1:1"}
	config.TimeoutSecond = 1

	transport, _ := NewClientTransport(config.Transport)
	if _, err := NewRPCStore(config, transport); err == nil {
		t.Fatal("Expected error for unreachable server")
	}
}

func TestNewClientTransportUnknown(t *testing.T) {
	if _, err := NewClientTransport("udp"); err == nil {
		t.Fatal("Expected error for unknown transport")
	}
}
