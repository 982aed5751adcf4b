package state

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/wallet"
	"github.com/ardanlabs/utxochain/foundation/metrics"
)

// NewTransfer builds a signed transaction moving the amount from the wallet
// at the from address to the to address. Any value selected beyond the
// amount is returned to the sender as change.
func (s *State) NewTransfer(from string, to string, amount uint64) (database.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.newTransfer(from, to, amount)
}

// Send builds the transfer, verifies it against the chain and mines it into
// a new block.
func (s *State) Send(ctx context.Context, from string, to string, amount uint64) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.newTransfer(from, to, amount)
	if err != nil {
		return database.Block{}, err
	}

	ok, err := s.db.VerifyTransaction(tx)
	if err != nil {
		return database.Block{}, err
	}
	if !ok {
		return database.Block{}, ErrInvalidSignature
	}

	started := time.Now()
	block, err := s.db.Append(ctx, []database.Tx{tx})
	metrics.ObserveLedger("append", err, started)
	if err != nil {
		return database.Block{}, err
	}
	metrics.ObserveBlockMined(block.Height, block.Nonce, started)

	s.evHandler("state: Send: tx[%s]: from[%s]: to[%s]: amount[%d]: blk[%s]", tx.ID, from, to, amount, block.Hash)

	return block, nil
}

// newTransfer performs the work of NewTransfer with the lock held.
func (s *State) newTransfer(from string, to string, amount uint64) (database.Tx, error) {
	if amount == 0 {
		return database.Tx{}, ErrZeroAmount
	}

	sender, err := s.wallets.Get(from)
	if err != nil {
		return database.Tx{}, &UnknownSenderError{Address: from, Err: err}
	}

	if err := s.knownReceiver(to); err != nil {
		return database.Tx{}, err
	}

	toPubKeyHash, err := s.pubKeyHash(to)
	if err != nil {
		return database.Tx{}, &UnknownReceiverError{Address: to, Err: err}
	}

	fromPubKeyHash := sender.PubKeyHash()

	accumulated, selection, err := s.utxo.FindSpendableOutputs(fromPubKeyHash, amount)
	if err != nil {
		return database.Tx{}, err
	}

	if accumulated < amount {
		return database.Tx{}, &InsufficientFundsError{Available: accumulated, Needed: amount}
	}

	// Inputs are ordered by transaction id.
	ids := make([]string, 0, len(selection))
	for id := range selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var tx database.Tx
	for _, id := range ids {
		for _, vout := range selection[id] {
			in := database.TxInput{
				From:   id,
				Vout:   vout,
				PubKey: sender.PublicKey,
			}
			tx.Inputs = append(tx.Inputs, in)
		}
	}

	tx.Outputs = append(tx.Outputs, database.NewTxOutput(amount, toPubKeyHash))
	if accumulated > amount {
		tx.Outputs = append(tx.Outputs, database.NewTxOutput(accumulated-amount, fromPubKeyHash))
	}

	id, err := tx.Hash()
	if err != nil {
		return database.Tx{}, err
	}
	tx.ID = id

	if err := s.db.SignTransaction(&tx, sender.PrivateKey); err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: NewTransfer: tx[%s]: inputs[%d]: outputs[%d]", tx.ID, len(tx.Inputs), len(tx.Outputs))

	return tx, nil
}

// knownReceiver checks the wallet store holds the receiving address.
func (s *State) knownReceiver(to string) error {
	exists, err := s.wallets.Exists(to)
	if err != nil {
		return &UnknownReceiverError{Address: to, Err: err}
	}

	if !exists {
		return &UnknownReceiverError{Address: to, Err: wallet.ErrNotFound}
	}

	return nil
}

// IsUserError reports whether the error was caused by the request rather
// than by the ledger or its stores.
func IsUserError(err error) bool {
	var sender *UnknownSenderError
	var receiver *UnknownReceiverError
	var funds *InsufficientFundsError

	switch {
	case errors.As(err, &sender), errors.As(err, &receiver), errors.As(err, &funds):
		return true
	case errors.Is(err, ErrZeroAmount), errors.Is(err, wallet.ErrInvalidAddress):
		return true
	}

	return false
}
