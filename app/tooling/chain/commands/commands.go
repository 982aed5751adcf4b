// Package commands contains the command tree of the chain program.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

// Usage lists the commands for the help output.
const Usage = `Commands:
  create <address>              create a blockchain rewarding the address
  create-wallet                 create a wallet and print its address
  import-wallets <dir>          store a wallet for every *.ecdsa key file in dir
  list-addresses                list the addresses of every wallet
  print-chain                   print every block from the tip to genesis
  get-balance <address>         print the balance of the address
  send <from> <to> <amount>     send the amount and mine it into a block`

// Store file names inside the database directory.
const (
	ledgerFile  = "blocks.db"
	spentFile   = "spent.db"
	walletsFile = "wallets.db"
)

// Config contains what every command needs to run.
type Config struct {
	DBPath     string
	Difficulty uint
	Network    string
	Memo       string
	Out        io.Writer
	EvHandler  func(v string, args ...any)
}

// Execute runs the command named by the first argument.
func Execute(ctx context.Context, cfg Config, args []string) error {
	root := &cobra.Command{
		Use:           "chain",
		Short:         "A simple UTXO blockchain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		createCmd(cfg),
		createWalletCmd(cfg),
		importWalletsCmd(cfg),
		listAddressesCmd(cfg),
		printChainCmd(cfg),
		getBalanceCmd(cfg),
		sendCmd(cfg),
	)

	root.SetArgs(args)
	root.SetOut(cfg.Out)

	return root.ExecuteContext(ctx)
}

// =============================================================================

// openWallets opens the wallet store on its own.
func openWallets(cfg Config) (*wallet.Wallets, database.Storage, error) {
	params, err := wallet.NetworkParams(cfg.Network)
	if err != nil {
		return nil, nil, err
	}

	store, err := disk.New(filepath.Join(cfg.DBPath, walletsFile))
	if err != nil {
		return nil, nil, err
	}

	return wallet.NewWallets(store, params), store, nil
}

// stateConfig opens every store and builds the state configuration.
func stateConfig(cfg Config) (state.Config, error) {
	params, err := wallet.NetworkParams(cfg.Network)
	if err != nil {
		return state.Config{}, err
	}

	ledger, err := disk.New(filepath.Join(cfg.DBPath, ledgerFile))
	if err != nil {
		return state.Config{}, err
	}

	spent, err := disk.New(filepath.Join(cfg.DBPath, spentFile))
	if err != nil {
		ledger.Close()
		return state.Config{}, err
	}

	wallets, err := disk.New(filepath.Join(cfg.DBPath, walletsFile))
	if err != nil {
		ledger.Close()
		spent.Close()
		return state.Config{}, err
	}

	stCfg := state.Config{
		Ledger:     ledger,
		Spent:      spent,
		Wallets:    wallets,
		Params:     params,
		Difficulty: cfg.Difficulty,
		EvHandler:  cfg.EvHandler,
	}

	return stCfg, nil
}

// closeStores releases the stores when the state could not take them over.
func closeStores(stCfg state.Config) {
	stCfg.Ledger.Close()
	stCfg.Spent.Close()
	stCfg.Wallets.Close()
}

// openState opens an existing blockchain.
func openState(cfg Config) (*state.State, error) {
	stCfg, err := stateConfig(cfg)
	if err != nil {
		return nil, err
	}

	s, err := state.Open(stCfg)
	if err != nil {
		closeStores(stCfg)
		if errors.Is(err, database.ErrUninitialized) {
			return nil, fmt.Errorf("no blockchain found in %s, run create first: %w", cfg.DBPath, err)
		}
		return nil, err
	}

	return s, nil
}
