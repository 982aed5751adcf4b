// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// SignatureLength is the number of bytes in a stored signature in the [R|S]
// format. The recovery id is not kept since verification is always done
// against a known public key.
const SignatureLength = crypto.SignatureLength - 1

// utxoStamp is mixed into every message before signing. This will make it
// clear that the signature comes from this blockchain.
const utxoStamp = "\x19UTXO Signed Message:\n32"

// =============================================================================

// Hash returns a unique hex encoded sha256 string for the value. The value
// is marshaled to JSON which provides a deterministic, field ordered encoding.
func Hash(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash, fmt.Errorf("marshal: %w", err)
	}

	return HashBytes(data), nil
}

// HashBytes returns the hex encoded sha256 digest of the data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// PubKeyHash returns RIPEMD160(SHA256(publicKey)). This is the 20 byte value
// used to lock and unlock transaction outputs.
func PubKeyHash(publicKey []byte) []byte {
	return btcutil.Hash160(publicKey)
}

// PublicKeyBytes returns the uncompressed encoding of the public key.
func PublicKeyBytes(publicKey *ecdsa.PublicKey) []byte {
	return crypto.FromECDSAPub(publicKey)
}

// Sign uses the specified private key to sign the message.
func Sign(message []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, errors.New("missing private key")
	}

	// Sign the stamped hash with the private key to produce a signature.
	sig, err := crypto.Sign(stamp(message), privateKey)
	if err != nil {
		return nil, err
	}

	// Drop the recovery id, only [R|S] is kept.
	return sig[:SignatureLength], nil
}

// Verify checks the signature was produced over the message by the private
// key that belongs to the specified public key. A malformed signature or
// public key is reported as a failed verification.
func Verify(message []byte, sig []byte, publicKey []byte) bool {
	if len(sig) != SignatureLength || len(publicKey) == 0 {
		return false
	}

	return crypto.VerifySignature(publicKey, stamp(message), sig)
}

// =============================================================================

// stamp returns a hash of 32 bytes that represents this message with
// the stamp embedded into the final hash.
func stamp(message []byte) []byte {

	// Hash the message into a 32 byte array. This will provide
	// a data length consistency with all messages.
	msgHash := crypto.Keccak256(message)

	// Hash the stamp and msgHash together in a final 32 byte array
	// that represents the message.
	return crypto.Keccak256([]byte(utxoStamp), msgHash)
}
