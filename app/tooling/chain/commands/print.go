package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

func printChainCmd(cfg Config) *cobra.Command {
	return &cobra.Command{
		Use:   "print-chain",
		Short: "Print every block from the tip back to genesis.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openState(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			blocks, err := s.Blocks()
			if err != nil {
				return err
			}

			for _, block := range blocks {
				printBlock(cmd.OutOrStdout(), s, block)
			}

			return nil
		},
	}
}

func printBlock(w io.Writer, s *state.State, block database.Block) {
	fmt.Fprintf(w, "============ Block %s ============\n", block.Hash)
	fmt.Fprintf(w, "Height: %d\n", block.Height)
	fmt.Fprintf(w, "Prev. block: %s\n", block.PrevHash)
	fmt.Fprintf(w, "Time: %s\n", time.UnixMilli(block.TimeStamp).UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "Nonce: %d\n", block.Nonce)
	if tree, err := block.MerkleTree(); err == nil {
		fmt.Fprintf(w, "Merkle root: %s\n", tree.RootHex())
	}
	fmt.Fprintf(w, "PoW: %t\n", block.Validate() == nil)

	for _, tx := range block.Transactions {
		printTx(w, s, tx)
	}

	fmt.Fprintln(w)
}

func printTx(w io.Writer, s *state.State, tx database.Tx) {
	fmt.Fprintf(w, "--- Transaction %s:\n", tx.ID)

	for i, in := range tx.Inputs {
		fmt.Fprintf(w, "     Input %d:\n", i)
		if tx.IsCoinbase() {
			fmt.Fprintf(w, "       Coinbase: %s\n", in.PubKey)
			continue
		}
		fmt.Fprintf(w, "       TXID:      %s\n", in.From)
		fmt.Fprintf(w, "       Out:       %d\n", in.Vout)
		fmt.Fprintf(w, "       Signature: %s\n", hexutil.Encode(in.Signature))
		fmt.Fprintf(w, "       PubKey:    %s\n", hexutil.Encode(in.PubKey))
	}

	for i, out := range tx.Outputs {
		address, err := s.Address(out.PubKeyHash)
		if err != nil {
			address = hexutil.Encode(out.PubKeyHash)
		}
		fmt.Fprintf(w, "     Output %d:\n", i)
		fmt.Fprintf(w, "       Value:  %d\n", out.Value)
		fmt.Fprintf(w, "       Script: %s\n", address)
	}
}
