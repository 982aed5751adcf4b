package publicgrp

import (
	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

type input struct {
	From      string        `json:"from"`
	Vout      int           `json:"vout"`
	Signature hexutil.Bytes `json:"signature,omitempty"`
	PubKey    hexutil.Bytes `json:"pub_key,omitempty"`
	Coinbase  string        `json:"coinbase,omitempty"`
}

type output struct {
	Value      uint64        `json:"value"`
	PubKeyHash hexutil.Bytes `json:"pub_key_hash"`
	Address    string        `json:"address"`
}

type tx struct {
	ID       string   `json:"id"`
	Coinbase bool     `json:"coinbase"`
	Inputs   []input  `json:"inputs"`
	Outputs  []output `json:"outputs"`
}

type block struct {
	Hash         string `json:"hash"`
	PrevHash     string `json:"prev_hash"`
	Height       uint64 `json:"height"`
	TimeStamp    int64  `json:"timestamp"`
	Nonce        uint64 `json:"nonce"`
	Difficulty   uint   `json:"difficulty"`
	MerkleRoot   string `json:"merkle_root"`
	PoW          bool   `json:"pow"`
	Transactions []tx   `json:"transactions"`
}

type balance struct {
	Address string   `json:"address"`
	Balance uint64   `json:"balance"`
	UTXO    []output `json:"utxo"`
}

// SendRequest is the payload accepted to send value between wallets.
type SendRequest struct {
	From   string `json:"from" validate:"required"`
	To     string `json:"to" validate:"required,nefield=From"`
	Amount uint64 `json:"amount" validate:"gt=0"`
}

type sendResponse struct {
	TxID  string `json:"tx_id"`
	Block block  `json:"block"`
}

// =============================================================================

func toOutput(s *state.State, out database.TxOutput) output {
	// Outputs are always locked to a 20 byte hash so encoding only fails
	// on a corrupt entry, which is still shown by its hash.
	address, _ := s.Address(out.PubKeyHash)

	return output{
		Value:      out.Value,
		PubKeyHash: out.PubKeyHash,
		Address:    address,
	}
}

func toTx(s *state.State, dbTx database.Tx) tx {
	t := tx{
		ID:       dbTx.ID,
		Coinbase: dbTx.IsCoinbase(),
		Inputs:   make([]input, len(dbTx.Inputs)),
		Outputs:  make([]output, len(dbTx.Outputs)),
	}

	for i, in := range dbTx.Inputs {
		if t.Coinbase {
			t.Inputs[i] = input{From: in.From, Vout: in.Vout, Coinbase: string(in.PubKey)}
			continue
		}

		t.Inputs[i] = input{
			From:      in.From,
			Vout:      in.Vout,
			Signature: in.Signature,
			PubKey:    in.PubKey,
		}
	}

	for i, out := range dbTx.Outputs {
		t.Outputs[i] = toOutput(s, out)
	}

	return t
}

func toBlock(s *state.State, dbBlock database.Block) block {
	b := block{
		Hash:         dbBlock.Hash,
		PrevHash:     dbBlock.PrevHash,
		Height:       dbBlock.Height,
		TimeStamp:    dbBlock.TimeStamp,
		Nonce:        dbBlock.Nonce,
		Difficulty:   dbBlock.Difficulty,
		PoW:          dbBlock.Validate() == nil,
		Transactions: make([]tx, len(dbBlock.Transactions)),
	}

	if tree, err := dbBlock.MerkleTree(); err == nil {
		b.MerkleRoot = tree.RootHex()
	}

	for i, dbTx := range dbBlock.Transactions {
		b.Transactions[i] = toTx(s, dbTx)
	}

	return b
}
