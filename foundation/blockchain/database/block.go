package database

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Block represents a group of transactions batched together and sealed by
// the proof of work.
type Block struct {
	TimeStamp    int64  `json:"timestamp"`  // Time the block was mined in milliseconds since the epoch.
	Transactions []Tx   `json:"txs"`        // Transactions committed to by the hash.
	PrevHash     string `json:"prev_hash"`  // Hash of the previous block in the chain, empty for genesis.
	Hash         string `json:"hash"`       // Hash solving the proof of work.
	Height       uint64 `json:"height"`     // Number of blocks before this one in the chain.
	Nonce        uint64 `json:"nonce"`      // Value identified to solve the hash solution.
	Difficulty   uint   `json:"difficulty"` // Number of 0's needed to solve the hash solution.
}

// blockContent is the set of fields committed to by the block hash.
type blockContent struct {
	PrevHash     string `json:"prev_hash"`
	Transactions []Tx   `json:"txs"`
	TimeStamp    int64  `json:"timestamp"`
	Difficulty   uint   `json:"difficulty"`
	Nonce        uint64 `json:"nonce"`
}

// IsGenesis checks if this is the first block of a chain.
func (b Block) IsGenesis() bool {
	return b.PrevHash == ""
}

// ComputeHash hashes the content of the block as it stands right now.
func (b Block) ComputeHash() (string, error) {
	content := blockContent{
		PrevHash:     b.PrevHash,
		Transactions: b.Transactions,
		TimeStamp:    b.TimeStamp,
		Difficulty:   b.Difficulty,
		Nonce:        b.Nonce,
	}

	hash, err := signature.Hash(content)
	if err != nil {
		return "", &SerializationError{What: "block", Err: err}
	}

	return hash, nil
}

// Validate checks the stored hash still matches the content of the block
// and solves the proof of work.
func (b Block) Validate() error {
	hash, err := b.ComputeHash()
	if err != nil {
		return err
	}

	if hash != b.Hash {
		return fmt.Errorf("block %d has been changed, got %s, exp %s", b.Height, hash, b.Hash)
	}

	if !isHashSolved(b.Difficulty, b.Hash) {
		return fmt.Errorf("block %d hash %s does not solve difficulty %d", b.Height, b.Hash, b.Difficulty)
	}

	return nil
}

// MerkleTree builds the merkle tree over the ids of the block transactions.
func (b Block) MerkleTree() (*merkle.Tree, error) {
	leafs := make([][]byte, len(b.Transactions))
	for i, tx := range b.Transactions {
		leaf, err := hex.DecodeString(tx.ID)
		if err != nil {
			return nil, &SerializationError{What: "transaction id " + tx.ID, Err: err}
		}
		leafs[i] = leaf
	}

	return merkle.NewTree(leafs)
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	PrevHash   string
	Height     uint64
	Difficulty uint
	Trans      []Tx
	Now        func() time.Time
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The nonce search starts at zero and
// stops at the first nonce that solves the puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	now := args.Now
	if now == nil {
		now = time.Now
	}

	// The timestamp is captured once and frozen into the block.
	ts := now().UnixMilli()
	if ts < 0 {
		return Block{}, &MiningError{Err: ErrClock}
	}

	nb := Block{
		TimeStamp:    ts,
		Transactions: args.Trans,
		PrevHash:     args.PrevHash,
		Height:       args.Height,
		Nonce:        0,
		Difficulty:   args.Difficulty,
	}

	if err := nb.performPOW(ctx, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("database: POW: MINING: started: height[%d]: difficulty[%d]", b.Height, b.Difficulty)
	defer ev("database: POW: MINING: completed")

	// Log the transactions that are a part of this potential block.
	for _, tx := range b.Transactions {
		ev("database: POW: MINING: tx[%s]", tx)
	}

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: POW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: POW: MINING: CANCELLED")
			return &MiningError{Err: ctx.Err()}
		}

		// Hash the block and check if we have solved the puzzle.
		hash, err := b.ComputeHash()
		if err != nil {
			return &MiningError{Err: err}
		}

		if !isHashSolved(b.Difficulty, hash) {
			b.Nonce++
			continue
		}

		ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.PrevHash, hash)
		ev("database: POW: MINING: attempts[%d]", attempts)

		b.Hash = hash
		return nil
	}
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	if len(hash) != len(signature.ZeroHash) || difficulty > uint(len(hash)) {
		return false
	}

	return hash[:difficulty] == signature.ZeroHash[:difficulty]
}
