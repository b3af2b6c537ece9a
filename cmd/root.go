package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/rKV/cmd/kv"
	"github.com/ValentinKolb/rKV/cmd/serve"
	"github.com/ValentinKolb/rKV/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "rkv",
		Short: "RESP key-value server",
		Long: fmt.Sprintf(`rKV (v%s)

An in-memory key-value server speaking the Redis serialization protocol (RESP).
Connections are served on goroutines or on a fixed size worker pool, all of
them share one store with optional key expiry.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rKV",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rKV v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper (env files and RKV_ variables)
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "config"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("optional config file (yaml, toml or json), flags and environment variables take precedence"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
