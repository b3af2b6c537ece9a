package unix

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
)

func TestUnixTransport(t *testing.T) {
	// socket paths are limited in length, t.TempDir can be too long
	dir, err := os.MkdirTemp("", "rkv")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)
	socketPath := filepath.Join(dir, "rkv.sock")

	// a stale file at the socket path is replaced
	if err := os.WriteFile(socketPath, []byte("stale"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	config := common.DefaultServerConfig()
	config.Transport.Type = common.TransportUnix
	config.Transport.Endpoint = socketPath
	config.ShutdownTimeout = time.Second

	server := NewUnixServerTransport()
	server.RegisterHandler(func(req resp.Frame) resp.Frame {
		arr, ok := req.(resp.Array)
		if !ok || len(arr) != 2 {
			return resp.Error("ERR wrong number of arguments")
		}
		return arr[1]
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
	clientConfig.Transport = common.TransportUnix
	clientConfig.Endpoints = []string{socketPath}

	client := NewUnixClientTransport()
	if err := client.Connect(clientConfig); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	res, err := client.Send([]byte("ECHO"), []byte("over unix"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if b, ok := res.(resp.Bulk); !ok || string(b) != "over unix" {
		t.Fatalf("Expected echo, got %v", res)
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
