package commands

import (
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

func createCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "create <address>",
		Short: "Create a blockchain rewarding the address with the genesis block.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stCfg, err := stateConfig(cfg)
			if err != nil {
				return err
			}

			s, err := state.Create(cmd.Context(), stCfg, args[0], cfg.Memo)
			if err != nil {
				closeStores(stCfg)
				return err
			}
			defer s.Close()

			genesis, err := s.LatestBlock()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Done! Genesis block %s\n", genesis.Hash)

			return nil
		},
	}
}
