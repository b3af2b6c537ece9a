package kv

import (
	"fmt"

	"github.com/ValentinKolb/rKV/cmd/util"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. With --ttl the key expires after the given duration (e.g. 1500ms, 10s, 1h)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			ttl, err := cmd.Flags().GetDuration("ttl")
			if err != nil {
				return err
			}

			if ttl != 0 {
				err = rpcStore.SetE(key, []byte(value), ttl)
			} else {
				err = rpcStore.Set(key, []byte(value))
			}
			if err != nil {
				return err
			}

			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if resp, ok, err := rpcStore.Get(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, resp=%s\n", key, ok, resp)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if deleted, err := rpcStore.Delete(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, deleted=%t\n", key, deleted)
			}
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if found, err := rpcStore.Has(key); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%t\n", key, found)
			}
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping [message]",
		Short: "Checks that the server answers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := ""
			if len(args) == 1 {
				msg = args[0]
			}
			res, err := rpcStore.Ping(msg)
			if err != nil {
				return err
			}
			fmt.Println(res)
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Duration("ttl", 0, util.WrapString("Expire the key after this duration (0 means never)"))
}
