package state

import (
	"encoding/hex"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
)

// TxProof shows a transaction is committed to by a block.
type TxProof struct {
	TxID       string       `json:"tx_id"`
	BlockHash  string       `json:"block_hash"`
	Height     uint64       `json:"height"`
	MerkleRoot string       `json:"merkle_root"`
	Proof      merkle.Proof `json:"proof"`
}

// Balance returns the sum of the unspent outputs owned by the address.
func (s *State) Balance(address string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkh, err := s.pubKeyHash(address)
	if err != nil {
		return 0, err
	}

	return s.utxo.Balance(pkh)
}

// UTXO returns the unspent outputs owned by the address.
func (s *State) UTXO(address string) ([]database.TxOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkh, err := s.pubKeyHash(address)
	if err != nil {
		return nil, err
	}

	return s.utxo.FindUTXO(pkh)
}

// Blocks returns every block from the tip back to genesis.
func (s *State) Blocks() ([]database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocks []database.Block

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// Block returns the block with the specified hash.
func (s *State) Block(hash string) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.GetBlock(hash)
}

// LatestBlock returns the block at the tip of the chain.
func (s *State) LatestBlock() (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.LatestBlock()
}

// Transaction returns the transaction with the specified id.
func (s *State) Transaction(id string) (database.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.FindTransaction(id)
}

// TransactionProof locates the block holding the transaction and builds the
// merkle proof of its inclusion.
func (s *State) TransactionProof(id string) (TxProof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, tx, err := s.db.FindTransactionBlock(id)
	if err != nil {
		return TxProof{}, err
	}

	tree, err := block.MerkleTree()
	if err != nil {
		return TxProof{}, err
	}

	leaf, err := hex.DecodeString(tx.ID)
	if err != nil {
		return TxProof{}, &database.SerializationError{What: "transaction id " + tx.ID, Err: err}
	}

	proof, err := tree.Proof(leaf)
	if err != nil {
		return TxProof{}, err
	}

	txp := TxProof{
		TxID:       tx.ID,
		BlockHash:  block.Hash,
		Height:     block.Height,
		MerkleRoot: tree.RootHex(),
		Proof:      proof,
	}

	return txp, nil
}

// VerifyTransaction checks the signatures of a transaction against the
// outputs it spends.
func (s *State) VerifyTransaction(tx database.Tx) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.VerifyTransaction(tx)
}

// Address encodes a pub key hash as an address for the configured network.
func (s *State) Address(pubKeyHash []byte) (string, error) {
	return s.wallets.Address(pubKeyHash)
}
