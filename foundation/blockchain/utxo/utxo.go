// Package utxo derives the unspent transaction outputs owned by a pub key
// hash by replaying the chain and maintaining a durable index of the outputs
// that have been spent.
package utxo

import (
	"encoding/json"
	"errors"
	"slices"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
)

// Engine answers unspent output queries for a ledger. The engine writes to
// the spent index while answering queries, callers must serialize access.
type Engine struct {
	db        *database.Database
	spent     database.Storage
	evHandler func(v string, args ...any)
}

// New constructs an engine over the ledger and the spent index store.
func New(db *database.Database, spent database.Storage, evHandler func(v string, args ...any)) *Engine {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	return &Engine{
		db:        db,
		spent:     spent,
		evHandler: evHandler,
	}
}

// SpentIndex loads the spent index: for each transaction id, the indices of
// the outputs already consumed.
func (e *Engine) SpentIndex() (map[string][]int, error) {
	index := make(map[string][]int)

	fn := func(key []byte, value []byte) error {
		var vouts []int
		if err := json.Unmarshal(value, &vouts); err != nil {
			return &database.SerializationError{What: "spent outputs " + string(key), Err: err}
		}
		index[string(key)] = vouts
		return nil
	}

	if err := e.spent.ForEach(fn); err != nil {
		var se *database.SerializationError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, &database.StoreError{Op: database.OpRead, Err: err}
	}

	return index, nil
}

// RecordSpent marks the output indices of the transaction as spent. The
// indices are merged with the ones already recorded and flushed to the store
// before returning.
func (e *Engine) RecordSpent(txID string, vouts []int) error {
	current, err := e.spentOutputs(txID)
	if err != nil {
		return err
	}

	merged := slices.Clone(current)
	for _, vout := range vouts {
		if !slices.Contains(merged, vout) {
			merged = append(merged, vout)
		}
	}

	if len(merged) == len(current) {
		return nil
	}
	slices.Sort(merged)

	data, err := json.Marshal(merged)
	if err != nil {
		return &database.SerializationError{What: "spent outputs " + txID, Err: err}
	}

	if err := e.spent.Put([]byte(txID), data); err != nil {
		return &database.StoreError{Op: database.OpWrite, Key: txID, Err: err}
	}

	if err := e.spent.Flush(); err != nil {
		return &database.StoreError{Op: database.OpWrite, Key: txID, Err: err}
	}

	e.evHandler("utxo: RecordSpent: tx[%s]: vouts%v", txID, merged)

	return nil
}

// UnspentTransactions returns, from the tip back to genesis, every
// transaction holding at least one unspent output locked to the pub key hash.
// Spends of those outputs found along the way are recorded in the spent
// index before the unspent outputs are collected.
func (e *Engine) UnspentTransactions(pubKeyHash []byte) ([]database.Tx, error) {
	outputs, err := e.unspentOutputs(pubKeyHash)
	if err != nil {
		return nil, err
	}

	var txs []database.Tx
	for _, out := range outputs {
		if len(txs) > 0 && txs[len(txs)-1].ID == out.Tx.ID {
			continue
		}
		txs = append(txs, out.Tx)
	}

	return txs, nil
}

// FindUTXO returns the unspent outputs locked to the pub key hash.
func (e *Engine) FindUTXO(pubKeyHash []byte) ([]database.TxOutput, error) {
	outputs, err := e.unspentOutputs(pubKeyHash)
	if err != nil {
		return nil, err
	}

	utxos := make([]database.TxOutput, len(outputs))
	for i, out := range outputs {
		utxos[i] = out.Output
	}

	return utxos, nil
}

// Balance returns the sum of the unspent outputs locked to the pub key hash.
func (e *Engine) Balance(pubKeyHash []byte) (uint64, error) {
	utxos, err := e.FindUTXO(pubKeyHash)
	if err != nil {
		return 0, err
	}

	var balance uint64
	for _, out := range utxos {
		balance += out.Value
	}

	return balance, nil
}

// FindSpendableOutputs selects unspent outputs locked to the pub key hash
// until their accumulated value reaches the amount. The selection maps a
// transaction id to the indices of its selected outputs. When the chain is
// exhausted first, the accumulated value is less than the amount.
func (e *Engine) FindSpendableOutputs(pubKeyHash []byte, amount uint64) (uint64, map[string][]int, error) {
	outputs, err := e.unspentOutputs(pubKeyHash)
	if err != nil {
		return 0, nil, err
	}

	var accumulated uint64
	selection := make(map[string][]int)

	for _, out := range outputs {
		if accumulated >= amount {
			break
		}

		accumulated += out.Output.Value
		selection[out.Tx.ID] = append(selection[out.Tx.ID], out.Index)
	}

	return accumulated, selection, nil
}

// =============================================================================

// Output identifies an unspent output within its transaction.
type Output struct {
	Tx     database.Tx
	Index  int
	Output database.TxOutput
}

// unspentOutputs discovers and records new spends for the pub key hash and
// then collects the outputs locked to it that remain unspent.
func (e *Engine) unspentOutputs(pubKeyHash []byte) ([]Output, error) {
	index, err := e.discoverSpends(pubKeyHash)
	if err != nil {
		return nil, err
	}

	var outputs []Output

	iter := e.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		for _, tx := range block.Transactions {
			for i, out := range tx.Outputs {
				if slices.Contains(index[tx.ID], i) {
					continue
				}

				if out.IsLockedWith(pubKeyHash) {
					outputs = append(outputs, Output{Tx: tx, Index: i, Output: out})
				}
			}
		}
	}

	return outputs, nil
}

// discoverSpends walks the whole chain looking for inputs created by the
// owner of the pub key hash. The outputs they consume are recorded in the
// spent index. Inputs may appear before or after the outputs they spend
// in the walk, so the index is complete only after the walk ends.
func (e *Engine) discoverSpends(pubKeyHash []byte) (map[string][]int, error) {
	index, err := e.SpentIndex()
	if err != nil {
		return nil, err
	}

	found := make(map[string][]int)

	iter := e.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		for _, tx := range block.Transactions {
			if tx.IsCoinbase() {
				continue
			}

			for _, in := range tx.Inputs {
				if !in.UsesKey(pubKeyHash) || slices.Contains(index[in.From], in.Vout) {
					continue
				}

				index[in.From] = append(index[in.From], in.Vout)
				found[in.From] = append(found[in.From], in.Vout)
			}
		}
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		if err := e.RecordSpent(id, found[id]); err != nil {
			return nil, err
		}
	}

	return index, nil
}

// spentOutputs returns the indices recorded for the transaction.
func (e *Engine) spentOutputs(txID string) ([]int, error) {
	data, err := e.spent.Get([]byte(txID))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, &database.StoreError{Op: database.OpRead, Key: txID, Err: err}
	}

	var vouts []int
	if err := json.Unmarshal(data, &vouts); err != nil {
		return nil, &database.SerializationError{What: "spent outputs " + txID, Err: err}
	}

	return vouts, nil
}
