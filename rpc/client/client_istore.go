package client

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/rpc/command"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
	"github.com/ValentinKolb/rKV/rpc/transport"
)

// NewRPCStore creates a store.IStore that forwards every operation to an rKV
// server. The transport is connected with config; Close closes it again.
func NewRPCStore(config common.ClientConfig, transport transport.IRPCClientTransport) (*RPCStore, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RPCStore{
		config:    config,
		transport: transport,
	}, nil
}

// RPCStore is a synchronous store client. It is safe for concurrent use.
type RPCStore struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (s *RPCStore) Set(key string, value []byte) error {
	return s.set(&command.Set{Key: key, Value: value})
}

func (s *RPCStore) SetE(key string, value []byte, expireIn time.Duration) error {
	if expireIn < 0 {
		return store.NewError(store.RetCInvalidOperation, fmt.Sprintf("negative expiry %s", expireIn))
	}
	return s.set(&command.Set{Key: key, Value: value, Expire: expireIn})
}

func (s *RPCStore) Delete(key string) (bool, error) {
	cmd := &command.Del{Keys: []string{key}}
	n, err := s.integer(cmd)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RPCStore) Get(key string) ([]byte, bool, error) {
	cmd := &command.Get{Key: key}
	res, err := invoke(s.transport, cmd.Args())
	if err != nil {
		return nil, false, err
	}

	switch res := res.(type) {
	case resp.Bulk:
		return []byte(res), true, nil
	case resp.Null:
		return nil, false, nil
	default:
		return nil, false, unexpected(cmd.Name(), res)
	}
}

func (s *RPCStore) Has(key string) (bool, error) {
	cmd := &command.Exists{Keys: []string{key}}
	n, err := s.integer(cmd)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// --------------------------------------------------------------------------
// Additional Methods
// --------------------------------------------------------------------------

// Ping sends PING (with msg if it is not empty) and returns the reply
func (s *RPCStore) Ping(msg string) (string, error) {
	cmd := &command.Ping{}
	if msg != "" {
		cmd.Msg = []byte(msg)
	}
	res, err := invoke(s.transport, cmd.Args())
	if err != nil {
		return "", err
	}

	switch res := res.(type) {
	case resp.Simple:
		return string(res), nil
	case resp.Bulk:
		return string(res), nil
	default:
		return "", unexpected(cmd.Name(), res)
	}
}

// Close closes the connections to the server
func (s *RPCStore) Close() error {
	return s.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *RPCStore) set(cmd *command.Set) error {
	res, err := invoke(s.transport, cmd.Args())
	if err != nil {
		return err
	}
	if res != resp.Simple("OK") {
		return unexpected(cmd.Name(), res)
	}
	return nil
}

func (s *RPCStore) integer(cmd command.Command) (uint64, error) {
	res, err := invoke(s.transport, cmd.Args())
	if err != nil {
		return 0, err
	}
	n, ok := res.(resp.Integer)
	if !ok {
		return 0, unexpected(cmd.Name(), res)
	}
	return uint64(n), nil
}

var _ store.IStore = (*RPCStore)(nil)
