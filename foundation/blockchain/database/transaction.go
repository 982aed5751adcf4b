package database

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// CoinbaseReward is the number of units minted by a coinbase transaction.
const CoinbaseReward uint64 = 100

// coinbaseVout marks the single input of a coinbase transaction.
const coinbaseVout = -1

// =============================================================================

// TxInput references a prior transaction output that is being spent.
type TxInput struct {
	From      string `json:"from"`      // Id of the transaction being spent.
	Vout      int    `json:"vout"`      // Index into that transaction's outputs, -1 for coinbase.
	Signature []byte `json:"signature"` // Signature over the per-input signing message.
	PubKey    []byte `json:"pub_key"`   // Raw public key of the spender, or the memo for coinbase.
}

// UsesKey checks whether the input was created by the owner of the
// specified pub key hash.
func (in TxInput) UsesKey(pubKeyHash []byte) bool {
	return bytes.Equal(signature.PubKeyHash(in.PubKey), pubKeyHash)
}

// TxOutput represents value locked to a pub key hash.
type TxOutput struct {
	Value      uint64 `json:"value"`        // Monetary value of this output.
	PubKeyHash []byte `json:"pub_key_hash"` // RIPEMD160(SHA256(public key)) of the owner.
}

// IsLockedWith checks if the output can be unlocked by the owner of the
// specified pub key hash.
func (out TxOutput) IsLockedWith(pubKeyHash []byte) bool {
	return bytes.Equal(out.PubKeyHash, pubKeyHash)
}

// NewTxOutput constructs an output locked to the pub key hash.
func NewTxOutput(value uint64, pubKeyHash []byte) TxOutput {
	return TxOutput{
		Value:      value,
		PubKeyHash: bytes.Clone(pubKeyHash),
	}
}

// =============================================================================

// Tx is a transfer of value from a set of prior outputs to a set of
// new outputs.
type Tx struct {
	ID      string     `json:"id"`
	Inputs  []TxInput  `json:"inputs"`
	Outputs []TxOutput `json:"outputs"`
}

// NewCoinbaseTx constructs the reward transaction that mints new value to
// the owner of the pub key hash. The memo is carried in the input's public
// key field since a coinbase input has nothing to unlock.
func NewCoinbaseTx(toPubKeyHash []byte, memo string) (Tx, error) {
	if memo == "" {
		memo = fmt.Sprintf("Reward to %s", hex.EncodeToString(toPubKeyHash))
	}

	tx := Tx{
		Inputs: []TxInput{
			{
				From:   "",
				Vout:   coinbaseVout,
				PubKey: []byte(memo),
			},
		},
		Outputs: []TxOutput{
			NewTxOutput(CoinbaseReward, toPubKeyHash),
		},
	}

	id, err := tx.Hash()
	if err != nil {
		return Tx{}, err
	}
	tx.ID = id

	return tx, nil
}

// IsCoinbase checks whether this transaction mints value with no real
// predecessor.
func (tx Tx) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].From == "" && tx.Inputs[0].Vout == coinbaseVout
}

// Hash returns the hash of the transaction with the id cleared, since the id
// is itself derived from this hash.
func (tx Tx) Hash() (string, error) {
	tx.ID = ""

	hash, err := signature.Hash(tx)
	if err != nil {
		return "", &SerializationError{What: "transaction", Err: err}
	}

	return hash, nil
}

// Sign signs every input of the transaction with the private key. Each input
// gets its own message which binds the signature to the output it spends.
// The prior transactions must contain every transaction referenced by an input.
func (tx *Tx) Sign(privateKey *ecdsa.PrivateKey, priorTxs map[string]Tx) error {
	if tx.IsCoinbase() {
		return nil
	}

	if err := tx.checkPriorTxs(priorTxs); err != nil {
		return err
	}

	for i := range tx.Inputs {
		msg, err := tx.signingMessage(i, priorTxs)
		if err != nil {
			return err
		}

		sig, err := signature.Sign(msg, privateKey)
		if err != nil {
			return fmt.Errorf("sign input %d: %w", i, err)
		}

		tx.Inputs[i].Signature = sig
	}

	return nil
}

// Verify checks the signature of every input against the public key carried
// by the input. An invalid signature is reported as false, not as an error.
// A non-coinbase transaction without inputs spends nothing and never verifies.
func (tx Tx) Verify(priorTxs map[string]Tx) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}

	if len(tx.Inputs) == 0 {
		return false, nil
	}

	if err := tx.checkPriorTxs(priorTxs); err != nil {
		return false, err
	}

	for i, in := range tx.Inputs {
		prevTx := priorTxs[in.From]
		if in.Vout < 0 || in.Vout >= len(prevTx.Outputs) {
			return false, nil
		}

		// The key presented must be the key the spent output is locked to.
		if !in.UsesKey(prevTx.Outputs[in.Vout].PubKeyHash) {
			return false, nil
		}

		msg, err := tx.signingMessage(i, priorTxs)
		if err != nil {
			return false, err
		}

		if !signature.Verify(msg, in.Signature, in.PubKey) {
			return false, nil
		}
	}

	return true, nil
}

// Equals checks if the two transactions carry the same id.
func (tx Tx) Equals(other Tx) bool {
	return tx.ID == other.ID
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]", tx.ID, len(tx.Inputs), len(tx.Outputs))
}

// =============================================================================

// checkPriorTxs validates every input references a provided transaction.
func (tx Tx) checkPriorTxs(priorTxs map[string]Tx) error {
	for _, in := range tx.Inputs {
		prevTx, exists := priorTxs[in.From]
		if !exists || prevTx.ID == "" {
			return &MissingPriorTransactionError{TxID: in.From}
		}
	}

	return nil
}

// signingMessage produces the message for the input at the specified index.
// A trimmed copy of the transaction has the input's public key replaced with
// the pub key hash of the output being spent and the copy's hash is the
// message.
func (tx Tx) signingMessage(index int, priorTxs map[string]Tx) ([]byte, error) {
	in := tx.Inputs[index]

	prevTx := priorTxs[in.From]
	if in.Vout < 0 || in.Vout >= len(prevTx.Outputs) {
		return nil, fmt.Errorf("input %d references output %d of %q which does not exist", index, in.Vout, in.From)
	}

	cpy := tx.trimmedCopy()
	cpy.Inputs[index].PubKey = prevTx.Outputs[in.Vout].PubKeyHash

	id, err := cpy.Hash()
	if err != nil {
		return nil, err
	}

	return []byte(id), nil
}

// trimmedCopy makes a deep copy of the transaction with all input
// signatures cleared.
func (tx Tx) trimmedCopy() Tx {
	inputs := make([]TxInput, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = TxInput{
			From:   in.From,
			Vout:   in.Vout,
			PubKey: bytes.Clone(in.PubKey),
		}
	}

	outputs := make([]TxOutput, len(tx.Outputs))
	for i, out := range tx.Outputs {
		outputs[i] = NewTxOutput(out.Value, out.PubKeyHash)
	}

	return Tx{
		ID:      tx.ID,
		Inputs:  inputs,
		Outputs: outputs,
	}
}
