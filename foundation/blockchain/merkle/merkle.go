// Package merkle builds merkle trees over the transactions of a block so
// the inclusion of a single transaction can be proven with a handful of
// hashes instead of the whole block.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Set of error variables for building and querying trees.
var (
	ErrNoLeafs  = errors.New("cannot construct tree with no leafs")
	ErrNotFound = errors.New("leaf not found in tree")
)

// Step is one level of an inclusion proof. Left reports whether the sibling
// hash is concatenated before the running hash.
type Step struct {
	Hash hexutil.Bytes `json:"hash"`
	Left bool          `json:"left"`
}

// Proof is the path of sibling hashes from a leaf up to the root.
type Proof []Step

// =============================================================================

// Tree is a merkle tree stored level by level, leafs first. A level with an
// odd number of nodes pairs its last node with itself.
type Tree struct {
	levels [][][]byte
}

// NewTree constructs a tree over the leaf hashes. Nodes are the sha256 of
// the concatenation of their children.
func NewTree(leafs [][]byte) (*Tree, error) {
	if len(leafs) == 0 {
		return nil, ErrNoLeafs
	}

	var t Tree

	level := make([][]byte, len(leafs))
	for i, leaf := range leafs {
		level[i] = bytes.Clone(leaf)
	}
	t.levels = append(t.levels, level)

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := i + 1
			if right == len(level) {
				right = i
			}
			next = append(next, hashPair(level[i], level[right]))
		}

		t.levels = append(t.levels, next)
		level = next
	}

	return &t, nil
}

// Root returns the merkle root.
func (t *Tree) Root() []byte {
	return t.levels[len(t.levels)-1][0]
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree) RootHex() string {
	return hexutil.Encode(t.Root())
}

// Proof returns the sibling hashes needed to rebuild the root from the
// leaf. A tree holding a single leaf has an empty proof.
func (t *Tree) Proof(leaf []byte) (Proof, error) {
	index := -1
	for i, l := range t.levels[0] {
		if bytes.Equal(l, leaf) {
			index = i
			break
		}
	}

	if index == -1 {
		return nil, ErrNotFound
	}

	proof := Proof{}
	for _, level := range t.levels[:len(t.levels)-1] {
		switch {
		case index%2 == 1:
			proof = append(proof, Step{Hash: level[index-1], Left: true})
		case index+1 < len(level):
			proof = append(proof, Step{Hash: level[index+1]})
		default:
			proof = append(proof, Step{Hash: level[index]})
		}
		index /= 2
	}

	return proof, nil
}

// Verify rebuilds the root from the leaf and its proof and compares it with
// the expected root.
func Verify(root []byte, leaf []byte, proof Proof) bool {
	h := bytes.Clone(leaf)
	for _, step := range proof {
		if step.Left {
			h = hashPair(step.Hash, h)
			continue
		}
		h = hashPair(h, step.Hash)
	}

	return bytes.Equal(h, root)
}

// =============================================================================

// hashPair hashes the concatenation of two nodes.
func hashPair(left []byte, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
