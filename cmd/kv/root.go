package kv

import (
	"github.com/ValentinKolb/rKV/cmd/util"
	"github.com/ValentinKolb/rKV/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore *client.RPCStore

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC store client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.ReadConfigFile(); err != nil {
		return err
	}

	config, err := util.GetClientConfig()
	if err != nil {
		return err
	}

	t, err := client.NewClientTransport(config.Transport)
	if err != nil {
		return err
	}

	rpcStore, err = client.NewRPCStore(*config, t)
	return err
}

// closeKVClient closes the connections of the RPC store client
func closeKVClient(*cobra.Command, []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}
