package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func getBalanceCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get-balance <address>",
		Short: "Print the balance of the address.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openState(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			balance, err := s.Balance(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Balance of '%s': %d\n", args[0], balance)

			return nil
		},
	}
}
