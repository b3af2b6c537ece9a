package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/rKV/cmd/util"
	"github.com/ValentinKolb/rKV/rpc/common"
	"github.com/ValentinKolb/rKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = common.DefaultServerConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the rKV server",
		Long:    `Start the rKV server with the specified configuration. The configuration can be set via command line flags, environment variables or a config file (--config). The format of the environment variables is RKV_<flag> (e.g. RKV_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	defaults := common.DefaultServerConfig()

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Transport.Endpoint, cmdUtil.WrapString("The address on which the server will listen (host:port for tcp, a socket path for unix)"))

	key = "dispatch"
	ServeCmd.PersistentFlags().String(key, string(defaults.Dispatch), cmdUtil.WrapString("How connections are served: 'goroutine' starts a goroutine per connection, 'pool' runs connections on a fixed number of workers"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, defaults.Workers, cmdUtil.WrapString("Number of workers for the pool dispatch mode. At most this many connections are served at the same time, others wait in the queue"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, defaults.TimeoutSecond, cmdUtil.WrapString("Read and write deadline in seconds for every connection operation (0 disables it). Idle connections are closed after this time"))

	key = "max-frame-size"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxFrameSize, cmdUtil.WrapString("The largest request (in bytes) a connection may buffer. Larger requests close the connection"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, defaults.ReadBufferSize, cmdUtil.WrapString("Initial size (in bytes) of the read buffer of every connection"))

	key = "shutdown-timeout"
	ServeCmd.PersistentFlags().Duration(key, defaults.ShutdownTimeout, cmdUtil.WrapString("How long to wait for open connections after a shutdown signal"))

	key = "expiry-interval"
	ServeCmd.PersistentFlags().Duration(key, defaults.ExpiryInterval, cmdUtil.WrapString("How often expired keys are purged from the store (negative disables the background purge)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.MetricsEndpoint, cmdUtil.WrapString("Address of the HTTP server exposing /metrics and /health (empty disables it)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, defaults.Transport.TCPNoDelay, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, defaults.Transport.TCPKeepAliveSec, cmdUtil.WrapString("The keepalive interval in seconds (only for tcp, 0 keeps the OS default)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, defaults.Transport.TCPLingerSec, cmdUtil.WrapString("The linger time in seconds (only for tcp, negative keeps the OS default)"))

	key = "socket-read-buffer"
	ServeCmd.PersistentFlags().Int(key, defaults.Transport.SocketReadBuffer, cmdUtil.WrapString("Size of the kernel receive buffer in bytes (only for tcp, 0 keeps the OS default)"))

	key = "socket-write-buffer"
	ServeCmd.PersistentFlags().Int(key, defaults.Transport.SocketWriteBuffer, cmdUtil.WrapString("Size of the kernel send buffer in bytes (only for tcp, 0 keeps the OS default)"))
}

// processConfig reads the configuration from the command line flags, environment variables and config file and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := cmdUtil.ReadConfigFile(); err != nil {
		return err
	}

	t, err := cmdUtil.GetTransportType()
	if err != nil {
		return err
	}

	serveCmdConfig.Transport = common.TransportConf{
		Type:              t,
		Endpoint:          viper.GetString("endpoint"),
		TCPNoDelay:        viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec:   viper.GetInt("tcp-keepalive"),
		TCPLingerSec:      viper.GetInt("tcp-linger"),
		SocketReadBuffer:  viper.GetInt("socket-read-buffer"),
		SocketWriteBuffer: viper.GetInt("socket-write-buffer"),
	}
	serveCmdConfig.Dispatch = common.DispatchMode(viper.GetString("dispatch"))
	serveCmdConfig.Workers = viper.GetInt("workers")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MaxFrameSize = viper.GetInt("max-frame-size")
	serveCmdConfig.ReadBufferSize = viper.GetInt("read-buffer")
	serveCmdConfig.ShutdownTimeout = viper.GetDuration("shutdown-timeout")
	serveCmdConfig.ExpiryInterval = viper.GetDuration("expiry-interval")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if err := serveCmdConfig.Validate(); err != nil {
		return err
	}

	// silence usage output for runtime errors from here on
	cmd.SilenceUsage = true

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the rKV server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	serv, err := server.NewRPCServer(serveCmdConfig, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serv.Serve(ctx)
}
