// Package state is the core API for the blockchain and ties the ledger, the
// UTXO engine and the wallets together for the applications.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/utxo"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/utxochain/foundation/metrics"
	"github.com/btcsuite/btcd/chaincfg"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to create or open the
// blockchain. The stores are owned by the State once Create or Open
// succeeds. On any failure they are left open and the caller has to close
// them.
type Config struct {
	Ledger     database.Storage
	Spent      database.Storage
	Wallets    database.Storage
	Params     *chaincfg.Params
	Difficulty uint
	Now        func() time.Time
	EvHandler  EventHandler
}

// State manages the blockchain database. Every method takes the same lock
// since the ledger and the spent index assume a single writer.
type State struct {
	mu        sync.Mutex
	evHandler EventHandler

	db      *database.Database
	utxo    *utxo.Engine
	spent   database.Storage
	wallets *wallet.Wallets
	wstore  database.Storage
}

// Create initializes a new blockchain whose genesis block rewards the address.
func Create(ctx context.Context, cfg Config, address string, memo string) (*State, error) {
	ev := safeEvHandler(cfg.EvHandler)

	wallets := wallet.NewWallets(cfg.Wallets, params(cfg))

	pubKeyHash, err := wallets.PubKeyHash(address)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	db, err := database.Create(ctx, dbConfig(cfg, ev), pubKeyHash, memo)
	metrics.ObserveLedger("create", err, started)
	if err != nil {
		return nil, err
	}

	// The database only wraps cfg.Ledger, so on failure there is nothing to
	// release beyond the stores the caller already has to close.
	genesis, err := db.LatestBlock()
	if err != nil {
		return nil, err
	}
	metrics.ObserveBlockMined(genesis.Height, genesis.Nonce, started)

	ev("state: Create: genesis[%s]: reward[%s]", genesis.Hash, address)

	return newState(cfg, ev, db, wallets), nil
}

// Open provides access to an existing blockchain.
func Open(cfg Config) (*State, error) {
	ev := safeEvHandler(cfg.EvHandler)

	db, err := database.Open(dbConfig(cfg, ev))
	if err != nil {
		return nil, err
	}

	wallets := wallet.NewWallets(cfg.Wallets, params(cfg))

	return newState(cfg, ev, db, wallets), nil
}

// Close releases every store.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return errors.Join(
		s.db.Close(),
		s.spent.Close(),
		s.wstore.Close(),
	)
}

// Difficulty returns the difficulty blocks are mined with.
func (s *State) Difficulty() uint {
	return s.db.Difficulty()
}

// Params returns the network addresses are encoded for.
func (s *State) Params() *chaincfg.Params {
	return s.wallets.Params()
}

// CreateWallet generates and stores a new wallet, returning its address.
func (s *State) CreateWallet() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wallets.Create()
}

// Addresses returns the addresses of every stored wallet.
func (s *State) Addresses() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wallets.Addresses()
}

// =============================================================================

// newState constructs the State around an open ledger.
func newState(cfg Config, ev EventHandler, db *database.Database, wallets *wallet.Wallets) *State {
	return &State{
		evHandler: ev,
		db:        db,
		utxo:      utxo.New(db, cfg.Spent, ev),
		spent:     cfg.Spent,
		wallets:   wallets,
		wstore:    cfg.Wallets,
	}
}

// dbConfig builds the ledger configuration.
func dbConfig(cfg Config, ev EventHandler) database.Config {
	return database.Config{
		Store:      cfg.Ledger,
		Difficulty: cfg.Difficulty,
		Now:        cfg.Now,
		EvHandler:  ev,
	}
}

// params returns the configured network, mainnet by default.
func params(cfg Config) *chaincfg.Params {
	if cfg.Params == nil {
		return &chaincfg.MainNetParams
	}
	return cfg.Params
}

// safeEvHandler builds a safe event handler function for use.
func safeEvHandler(evHandler EventHandler) EventHandler {
	return func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}
}

// pubKeyHash decodes an address for the configured network.
func (s *State) pubKeyHash(address string) ([]byte, error) {
	pkh, err := s.wallets.PubKeyHash(address)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", address, err)
	}
	return pkh, nil
}
