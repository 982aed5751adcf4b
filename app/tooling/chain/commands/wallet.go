package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func createWalletCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "create-wallet",
		Short: "Create a wallet and print its address.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wallets, store, err := openWallets(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			address, err := wallets.Create()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Your new address: %s\n", address)

			return nil
		},
	}
}

func importWalletsCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import-wallets <dir>",
		Short: "Store a wallet for every *.ecdsa key file in the directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallets, store, err := openWallets(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			addresses, err := wallets.ImportDir(args[0])
			if err != nil {
				return err
			}

			for _, address := range addresses {
				fmt.Fprintf(cmd.OutOrStdout(), "Imported address: %s\n", address)
			}

			return nil
		},
	}
}

func listAddressesCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list-addresses",
		Short: "List the addresses of every wallet.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wallets, store, err := openWallets(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			addresses, err := wallets.Addresses()
			if err != nil {
				return err
			}

			for _, address := range addresses {
				fmt.Fprintln(cmd.OutOrStdout(), address)
			}

			return nil
		},
	}
}
