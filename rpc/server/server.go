package server

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/ValentinKolb/rKV/lib/store"
	"github.com/ValentinKolb/rKV/lib/store/lstore"
	"github.com/ValentinKolb/rKV/rpc/command"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/resp"
	"github.com/ValentinKolb/rKV/rpc/transport/base"
	"github.com/ValentinKolb/rKV/rpc/transport/http"
	"github.com/ValentinKolb/rKV/rpc/transport/tcp"
	"github.com/ValentinKolb/rKV/rpc/transport/unix"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("rpc")

// commandNames are the commands that get their own request counter
var commandNames = []string{"get", "set", "del", "exists", "ping"}

// RPCServer serves a store over the RESP protocol
type RPCServer struct {
	config    common.ServerConfig
	store     store.IStore
	ownsStore bool
	transport *base.ServerTransport
	metrics   *http.MetricsServer // nil if disabled

	set           *metrics.Set
	commands      map[string]*metrics.Counter
	unknown       *metrics.Counter
	commandErrors *metrics.Counter
}

// NewRPCServer creates a new RPC server for the given config.
// If kv is nil a local store is created and closed when Serve returns.
//
// Usage:
//
//	s, err := server.NewRPCServer(config, nil)
//	if err != nil {
//		return err
//	}
//	return s.Serve(ctx)
func NewRPCServer(config common.ServerConfig, kv store.IStore) (*RPCServer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}

	s := &RPCServer{
		config:   config,
		store:    kv,
		set:      metrics.NewSet(),
		commands: make(map[string]*metrics.Counter, len(commandNames)),
	}

	switch config.Transport.Type {
	case common.TransportTCP:
		s.transport = tcp.NewTCPServerTransport()
	case common.TransportUnix:
		s.transport = unix.NewUnixServerTransport()
	default:
		return nil, fmt.Errorf("unknown transport type: %s", config.Transport.Type)
	}

	if s.store == nil {
		s.store = lstore.NewLocalStore(&lstore.Options{ExpiryInterval: config.ExpiryInterval})
		s.ownsStore = true
	}

	for _, name := range commandNames {
		s.commands[name] = s.set.NewCounter(fmt.Sprintf(`rkv_commands_total{command=%q}`, name))
	}
	s.unknown = s.set.NewCounter(`rkv_commands_total{command="unknown"}`)
	s.commandErrors = s.set.NewCounter("rkv_command_errors_total")

	if config.MetricsEndpoint != "" {
		s.metrics = http.NewMetricsServer(config.MetricsEndpoint, s.MetricSets, s.health, config.LogLevel == "debug")
	}

	s.transport.RegisterHandler(s.handle)

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return s, nil
}

// Serve runs the server until ctx is cancelled. Connections that were
// accepted before are served until they close or the shutdown timeout passes,
// then they are closed. A store owned by the server is closed last, when no
// connection can reach it anymore.
func (s *RPCServer) Serve(ctx context.Context) error {
	if s.ownsStore {
		defer func() {
			if c, ok := s.store.(io.Closer); ok {
				_ = c.Close()
			}
		}()
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.transport.Listen(ctx, s.config)
	})

	if s.metrics != nil {
		g.Go(func() error {
			return s.metrics.Serve(ctx)
		})
	}

	return g.Wait()
}

// Ready is closed once the server accepts connections
func (s *RPCServer) Ready() <-chan struct{} {
	return s.transport.Ready()
}

// Addr returns the address the server listens on, nil before Ready
func (s *RPCServer) Addr() net.Addr {
	return s.transport.Addr()
}

// MetricsAddr returns the address of the metrics server, nil if it is disabled or not started
func (s *RPCServer) MetricsAddr() net.Addr {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.Addr()
}

// Store returns the store the server operates on
func (s *RPCServer) Store() store.IStore {
	return s.store
}

// MetricSets returns all metric sets of the server
func (s *RPCServer) MetricSets() []*metrics.Set {
	sets := append([]*metrics.Set{s.set}, s.transport.MetricSets()...)
	if m, ok := s.store.(interface{ Metrics() *metrics.Set }); ok {
		sets = append(sets, m.Metrics())
	}
	return sets
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handle parses a request and applies it to the store. Invalid requests are
// answered with an error frame, the connection stays usable.
func (s *RPCServer) handle(req resp.Frame) resp.Frame {
	cmd, err := command.FromFrame(req)
	if err != nil {
		s.commandErrors.Inc()
		Logger.Debugf("Rejected request: %v", err)
		return command.ErrorFrame(err)
	}

	if counter, ok := s.commands[cmd.Name()]; ok {
		counter.Inc()
	} else {
		s.unknown.Inc()
	}

	res := cmd.Apply(s.store)
	if _, isErr := res.(resp.Error); isErr {
		s.commandErrors.Inc()
	}
	return res
}

// health reports an error if the store no longer serves requests
func (s *RPCServer) health() error {
	_, err := s.store.Has("")
	return err
}
