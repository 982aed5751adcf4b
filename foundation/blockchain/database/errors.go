package database

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Set of error variables for the ledger and the transaction model.
var (
	ErrKeyNotFound         = errors.New("key not found")
	ErrUninitialized       = errors.New("ledger not initialized, create it first")
	ErrLedgerExists        = errors.New("ledger already exists")
	ErrNoTransactions      = errors.New("no transactions to add to the block")
	ErrClock               = errors.New("wall clock is before the unix epoch")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Set of store operations used to classify a StoreError.
const (
	OpInit  = "init"
	OpRead  = "read"
	OpWrite = "write"
)

// =============================================================================

// StoreError is returned when the underlying key-value store cannot be
// created, read from or written to.
type StoreError struct {
	Op  string
	Key string
	Err error
}

// Error implements the error interface.
func (se *StoreError) Error() string {
	if se.Key == "" {
		return fmt.Sprintf("store %s: %s", se.Op, se.Err)
	}
	return fmt.Sprintf("store %s[%s]: %s", se.Op, se.Key, se.Err)
}

// Unwrap provides access to the store failure.
func (se *StoreError) Unwrap() error {
	return se.Err
}

// SerializationError is returned when a value can't be encoded or a stored
// entry can't be decoded.
type SerializationError struct {
	What string
	Err  error
}

// Error implements the error interface.
func (se *SerializationError) Error() string {
	return fmt.Sprintf("serialization of %s: %s", se.What, se.Err)
}

// Unwrap provides access to the codec failure.
func (se *SerializationError) Unwrap() error {
	return se.Err
}

// DifficultyError is returned when a ledger is configured with a difficulty
// no block hash can satisfy or that requires no work at all.
type DifficultyError struct {
	Difficulty uint
}

// Error implements the error interface.
func (de *DifficultyError) Error() string {
	return fmt.Sprintf("difficulty %d out of range [1, %d]", de.Difficulty, len(signature.ZeroHash))
}

// MiningError is returned when a block can't be mined.
type MiningError struct {
	Err error
}

// Error implements the error interface.
func (me *MiningError) Error() string {
	return fmt.Sprintf("mining: %s", me.Err)
}

// Unwrap provides access to the mining failure.
func (me *MiningError) Unwrap() error {
	return me.Err
}

// MissingPriorTransactionError is returned when signing or verifying an input
// whose referenced transaction was not provided.
type MissingPriorTransactionError struct {
	TxID string
}

// Error implements the error interface.
func (me *MissingPriorTransactionError) Error() string {
	return fmt.Sprintf("prior transaction %q is missing", me.TxID)
}

// PriorTransactionLookupError is returned when the ledger can't locate a
// transaction referenced by an input.
type PriorTransactionLookupError struct {
	TxID string
	Err  error
}

// Error implements the error interface.
func (pe *PriorTransactionLookupError) Error() string {
	return fmt.Sprintf("lookup prior transaction %q: %s", pe.TxID, pe.Err)
}

// Unwrap provides access to the lookup failure.
func (pe *PriorTransactionLookupError) Unwrap() error {
	return pe.Err
}
