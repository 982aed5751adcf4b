// Package database handles all the lower level support for maintaining the
// blockchain in a key-value store: mining blocks, linking them by hash and
// walking the chain from the tip back to genesis.
package database

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// lastKey is the key holding the hash of the tip of the chain.
const lastKey = "LAST"

// Config represents the configuration required to create or open a ledger.
type Config struct {
	Store      Storage
	Difficulty uint
	Now        func() time.Time
	EvHandler  func(v string, args ...any)
}

// Database manages the chain of blocks held in the key-value store. A
// Database assumes it is the only writer of its store, callers must
// serialize Append calls.
type Database struct {
	store      Storage
	difficulty uint
	now        func() time.Time
	evHandler  func(v string, args ...any)
}

// Create initializes a new ledger in the store. A genesis block holding a
// single coinbase transaction rewarding the pub key hash is mined and
// recorded as the tip of the chain.
func Create(ctx context.Context, cfg Config, rewardPubKeyHash []byte, memo string) (*Database, error) {
	db, err := newDatabase(cfg)
	if err != nil {
		return nil, err
	}

	switch _, err := db.store.Get([]byte(lastKey)); {
	case err == nil:
		return nil, ErrLedgerExists
	case !errors.Is(err, ErrKeyNotFound):
		return nil, &StoreError{Op: OpInit, Key: lastKey, Err: err}
	}

	tx, err := NewCoinbaseTx(rewardPubKeyHash, memo)
	if err != nil {
		return nil, err
	}

	genesis, err := db.mine(ctx, "", 0, []Tx{tx})
	if err != nil {
		return nil, err
	}

	if err := db.commit(genesis); err != nil {
		return nil, err
	}

	db.evHandler("database: Create: genesis[%s]", genesis.Hash)

	return db, nil
}

// Open provides access to a ledger that was previously created in the store.
func Open(cfg Config) (*Database, error) {
	db, err := newDatabase(cfg)
	if err != nil {
		return nil, err
	}

	if _, err := db.LatestHash(); err != nil {
		return nil, err
	}

	return db, nil
}

// newDatabase constructs a Database from the configuration.
func newDatabase(cfg Config) (*Database, error) {
	if cfg.Store == nil {
		return nil, &StoreError{Op: OpInit, Err: errors.New("no store provided")}
	}

	if cfg.Difficulty == 0 || cfg.Difficulty > uint(len(signature.ZeroHash)) {
		return nil, &DifficultyError{Difficulty: cfg.Difficulty}
	}

	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	db := Database{
		store:      cfg.Store,
		difficulty: cfg.Difficulty,
		now:        now,
		evHandler:  ev,
	}

	return &db, nil
}

// Close closes the underlying store.
func (db *Database) Close() error {
	return db.store.Close()
}

// Difficulty returns the number of leading zeros required of a block hash.
func (db *Database) Difficulty() uint {
	return db.difficulty
}

// LatestHash returns the hash of the tip of the chain.
func (db *Database) LatestHash() (string, error) {
	data, err := db.store.Get([]byte(lastKey))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return "", ErrUninitialized
		}
		return "", &StoreError{Op: OpRead, Key: lastKey, Err: err}
	}

	return string(data), nil
}

// LatestBlock returns the block at the tip of the chain.
func (db *Database) LatestBlock() (Block, error) {
	hash, err := db.LatestHash()
	if err != nil {
		return Block{}, err
	}

	return db.GetBlock(hash)
}

// GetBlock locates the block with the specified hash.
func (db *Database) GetBlock(hash string) (Block, error) {
	data, err := db.store.Get([]byte(hash))
	if err != nil {
		return Block{}, &StoreError{Op: OpRead, Key: hash, Err: err}
	}

	return DecodeBlock(data)
}

// Append mines a new block holding the transactions on top of the current
// tip and makes it the new tip.
func (db *Database) Append(ctx context.Context, txs []Tx) (Block, error) {
	if len(txs) == 0 {
		return Block{}, ErrNoTransactions
	}

	tip, err := db.LatestBlock()
	if err != nil {
		return Block{}, err
	}

	block, err := db.mine(ctx, tip.Hash, tip.Height+1, txs)
	if err != nil {
		return Block{}, err
	}

	if err := db.commit(block); err != nil {
		return Block{}, err
	}

	return block, nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the tip of the chain and ending with genesis. Every call returns a new
// iterator positioned at the current tip.
func (db *Database) ForEach() *Iterator {
	return &Iterator{db: db}
}

// FindTransaction scans the chain for the transaction with the specified id.
func (db *Database) FindTransaction(id string) (Tx, error) {
	_, tx, err := db.FindTransactionBlock(id)
	return tx, err
}

// FindTransactionBlock scans the chain for the transaction with the specified
// id and returns it with the block that holds it.
func (db *Database) FindTransactionBlock(id string) (Block, Tx, error) {
	iter := db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return Block{}, Tx{}, err
		}

		for _, tx := range block.Transactions {
			if tx.ID == id {
				return block, tx, nil
			}
		}
	}

	return Block{}, Tx{}, fmt.Errorf("find transaction %q: %w", id, ErrTransactionNotFound)
}

// SignTransaction signs every input of the transaction after locating the
// transactions the inputs spend.
func (db *Database) SignTransaction(tx *Tx, privateKey *ecdsa.PrivateKey) error {
	priorTxs, err := db.priorTransactions(*tx)
	if err != nil {
		return err
	}

	return tx.Sign(privateKey, priorTxs)
}

// VerifyTransaction checks the signatures of the transaction after locating
// the transactions the inputs spend.
func (db *Database) VerifyTransaction(tx Tx) (bool, error) {
	priorTxs, err := db.priorTransactions(tx)
	if err != nil {
		return false, err
	}

	return tx.Verify(priorTxs)
}

// =============================================================================

// mine runs the proof of work for a new block.
func (db *Database) mine(ctx context.Context, prevHash string, height uint64, txs []Tx) (Block, error) {
	args := POWArgs{
		PrevHash:   prevHash,
		Height:     height,
		Difficulty: db.difficulty,
		Trans:      txs,
		Now:        db.now,
		EvHandler:  db.evHandler,
	}

	return POW(ctx, args)
}

// commit writes the block and moves the tip to it. The block is written
// first so a failure in between leaves an unreachable block behind, never
// a tip pointing at nothing.
func (db *Database) commit(block Block) error {
	data, err := EncodeBlock(block)
	if err != nil {
		return err
	}

	if err := db.store.Put([]byte(block.Hash), data); err != nil {
		return &StoreError{Op: OpWrite, Key: block.Hash, Err: err}
	}

	if err := db.store.Put([]byte(lastKey), []byte(block.Hash)); err != nil {
		return &StoreError{Op: OpWrite, Key: lastKey, Err: err}
	}

	if err := db.store.Flush(); err != nil {
		return &StoreError{Op: OpWrite, Err: err}
	}

	db.evHandler("database: commit: height[%d]: blk[%s]", block.Height, block.Hash)

	return nil
}

// priorTransactions locates every transaction spent by the inputs.
func (db *Database) priorTransactions(tx Tx) (map[string]Tx, error) {
	priorTxs := make(map[string]Tx)
	if tx.IsCoinbase() {
		return priorTxs, nil
	}

	for _, in := range tx.Inputs {
		if _, exists := priorTxs[in.From]; exists {
			continue
		}

		prevTx, err := db.FindTransaction(in.From)
		if err != nil {
			return nil, &PriorTransactionLookupError{TxID: in.From, Err: err}
		}
		priorTxs[in.From] = prevTx
	}

	return priorTxs, nil
}

// =============================================================================

// EncodeBlock produces the stored representation of a block.
func EncodeBlock(block Block) ([]byte, error) {
	data, err := json.Marshal(block)
	if err != nil {
		return nil, &SerializationError{What: "block", Err: err}
	}

	return data, nil
}

// DecodeBlock reconstructs a block from its stored representation.
func DecodeBlock(data []byte) (Block, error) {
	var block Block
	if err := json.Unmarshal(data, &block); err != nil {
		return Block{}, &SerializationError{What: "block", Err: err}
	}

	return block, nil
}

// =============================================================================

// Iterator walks the chain backward from the tip it observed on its first
// call to Next. A block hash missing from the store ends the walk.
type Iterator struct {
	db      *Database
	current string
	started bool
	done    bool
}

// Next retrieves the next block walking toward genesis. Once the walk is
// over, Done reports true and the returned block is empty.
func (it *Iterator) Next() (Block, error) {
	if it.done {
		return Block{}, nil
	}

	if !it.started {
		it.started = true

		hash, err := it.db.LatestHash()
		if err != nil {
			if errors.Is(err, ErrUninitialized) {
				it.done = true
				return Block{}, nil
			}
			it.current = ""
			return Block{}, err
		}
		it.current = hash
	}

	if it.current == "" {
		it.done = true
		return Block{}, nil
	}

	data, err := it.db.store.Get([]byte(it.current))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			it.done = true
			return Block{}, nil
		}

		key := it.current
		it.current = ""
		return Block{}, &StoreError{Op: OpRead, Key: key, Err: err}
	}

	block, err := DecodeBlock(data)
	if err != nil {
		it.current = ""
		return Block{}, err
	}

	it.current = block.PrevHash

	return block, nil
}

// Done returns the end of chain value.
func (it *Iterator) Done() bool {
	return it.done
}
