package commands

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/utxochain/foundation/validate"
	"github.com/spf13/cobra"
)

// sendArgs represents the arguments of the send command.
type sendArgs struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required,nefield=From"`
	Amount uint64 `json:"amount" validate:"gt=0"`
}

func sendCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "send <from> <to> <amount>",
		Short: "Send the amount and mine it into a new block.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("parsing amount %q: %w", args[2], err)
			}

			sa := sendArgs{
				From:   args[0],
				To:     args[1],
				Amount: amount,
			}

			if err := validate.Check(sa); err != nil {
				return fmt.Errorf("validating arguments: %w", err)
			}

			s, err := openState(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			block, err := s.Send(cmd.Context(), sa.From, sa.To, sa.Amount)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Success! Mined block %d %s\n", block.Height, block.Hash)

			return nil
		},
	}
}
