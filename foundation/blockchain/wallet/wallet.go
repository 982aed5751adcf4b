// Package wallet maintains the key pairs that own outputs on the chain and
// encodes their pub key hashes as base58check addresses.
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidAddress is returned when an address can't be decoded into a
// pub key hash for the configured network.
var ErrInvalidAddress = errors.New("invalid address")

// Wallet represents a key pair able to sign inputs.
type Wallet struct {
	PrivateKey *ecdsa.PrivateKey
	PublicKey  []byte
}

// New generates a new key pair.
func New() (Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return Wallet{}, fmt.Errorf("generate key: %w", err)
	}

	return FromPrivateKey(privateKey), nil
}

// FromPrivateKey constructs the wallet for an existing private key.
func FromPrivateKey(privateKey *ecdsa.PrivateKey) Wallet {
	return Wallet{
		PrivateKey: privateKey,
		PublicKey:  signature.PublicKeyBytes(&privateKey.PublicKey),
	}
}

// PubKeyHash returns the hash outputs owned by this wallet are locked with.
func (w Wallet) PubKeyHash() []byte {
	return signature.PubKeyHash(w.PublicKey)
}

// Address returns the base58check address of the wallet on the network.
func (w Wallet) Address(params *chaincfg.Params) (string, error) {
	return Address(w.PubKeyHash(), params)
}

// =============================================================================

// Address encodes the pub key hash as a P2PKH address on the network.
func Address(pubKeyHash []byte, params *chaincfg.Params) (string, error) {
	addr, err := btcutil.NewAddressPubKeyHash(pubKeyHash, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	return addr.EncodeAddress(), nil
}

// PubKeyHash decodes the address back into the pub key hash it carries.
func PubKeyHash(address string, params *chaincfg.Params) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidAddress, address, err)
	}

	pkh, ok := addr.(*btcutil.AddressPubKeyHash)
	if !ok || !pkh.IsForNet(params) {
		return nil, fmt.Errorf("%w: %q is not a pub key hash address for %s", ErrInvalidAddress, address, params.Name)
	}

	return pkh.Hash160()[:], nil
}

// NetworkParams returns the chain parameters selecting the address version
// for the named network.
func NetworkParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "main", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}
