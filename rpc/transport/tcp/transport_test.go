package tcp

import (
	"context"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
)

func TestTCPTransport(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Transport.Endpoint = "127.0.0.1:0"
	config.Transport.TCPNoDelay = true
	config.Transport.TCPKeepAliveSec = 30
	config.Transport.TCPLingerSec = 0
	config.Transport.SocketReadBuffer = 64 * 1024
	config.Transport.SocketWriteBuffer = 64 * 1024
	config.ShutdownTimeout = time.Second

	server := NewTCPServerTransport()
	server.RegisterHandler(func(req resp.Frame) resp.Frame {
		return resp.Simple("PONG")
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- server.Listen(ctx, config) }()

	select {
	case <-server.Ready():
	case err := <-errCh:
		t.Fatalf("Listen failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not start")
	}

	clientConfig := common.DefaultClientConfig()
	clientConfig.Endpoints = []string{server.Addr().String()}

	client := NewTCPClientTransport()
	if err := client.Connect(clientConfig); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	res, err := client.Send([]byte("PING"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if res != resp.Simple("PONG") {
		t.Fatalf("Expected PONG, got %v", res)
	}

	_ = client.Close()
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Listen returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestTCPListenError(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Transport.Endpoint = "not-a-host:-1"

	server := NewTCPServerTransport()
	server.RegisterHandler(func(resp.Frame) resp.Frame { return resp.Simple("OK") })
	if err := server.Listen(context.Background(), config); err == nil {
		t.Fatal("Expected error for invalid endpoint")
	}
}
