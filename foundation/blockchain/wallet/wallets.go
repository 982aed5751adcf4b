package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotFound is returned when no wallet is stored for an address.
var ErrNotFound = errors.New("wallet not found")

// record is the stored form of a wallet.
type record struct {
	SecretKey string `json:"secret_key"`
	PublicKey string `json:"public_key"`
}

// Wallets manages the wallets kept in a key-value store keyed by address.
type Wallets struct {
	store  database.Storage
	params *chaincfg.Params
}

// NewWallets constructs the wallet store for the network.
func NewWallets(store database.Storage, params *chaincfg.Params) *Wallets {
	return &Wallets{
		store:  store,
		params: params,
	}
}

// Params returns the network the addresses are encoded for.
func (ws *Wallets) Params() *chaincfg.Params {
	return ws.params
}

// Create generates a new wallet, stores it and returns its address.
func (ws *Wallets) Create() (string, error) {
	w, err := New()
	if err != nil {
		return "", err
	}

	return ws.Add(w.PrivateKey)
}

// Add stores the wallet for the private key and returns its address.
func (ws *Wallets) Add(privateKey *ecdsa.PrivateKey) (string, error) {
	w := FromPrivateKey(privateKey)

	address, err := w.Address(ws.params)
	if err != nil {
		return "", err
	}

	rec := record{
		SecretKey: hexutil.Encode(crypto.FromECDSA(w.PrivateKey)),
		PublicKey: hexutil.Encode(w.PublicKey),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return "", &database.SerializationError{What: "wallet", Err: err}
	}

	if err := ws.store.Put([]byte(address), data); err != nil {
		return "", &database.StoreError{Op: database.OpWrite, Key: address, Err: err}
	}

	if err := ws.store.Flush(); err != nil {
		return "", &database.StoreError{Op: database.OpWrite, Key: address, Err: err}
	}

	return address, nil
}

// ImportDir walks the folder for *.ecdsa key files and stores a wallet for
// each one. The addresses are returned in the order the files were found.
func (ws *Wallets) ImportDir(root string) ([]string, error) {
	var addresses []string

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != ".ecdsa" {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("load %s: %w", fileName, err)
		}

		address, err := ws.Add(privateKey)
		if err != nil {
			return err
		}
		addresses = append(addresses, address)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return addresses, nil
}

// Get returns the wallet stored for the address.
func (ws *Wallets) Get(address string) (Wallet, error) {
	data, err := ws.store.Get([]byte(address))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return Wallet{}, fmt.Errorf("%w: %s", ErrNotFound, address)
		}
		return Wallet{}, &database.StoreError{Op: database.OpRead, Key: address, Err: err}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Wallet{}, &database.SerializationError{What: "wallet " + address, Err: err}
	}

	secret, err := hexutil.Decode(rec.SecretKey)
	if err != nil {
		return Wallet{}, &database.SerializationError{What: "wallet " + address, Err: err}
	}

	privateKey, err := crypto.ToECDSA(secret)
	if err != nil {
		return Wallet{}, &database.SerializationError{What: "wallet " + address, Err: err}
	}

	return FromPrivateKey(privateKey), nil
}

// Exists reports whether a wallet is stored for the address.
func (ws *Wallets) Exists(address string) (bool, error) {
	if _, err := ws.Get(address); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// Addresses returns the addresses of every stored wallet in sorted order.
func (ws *Wallets) Addresses() ([]string, error) {
	var addresses []string

	fn := func(key []byte, value []byte) error {
		addresses = append(addresses, string(key))
		return nil
	}

	if err := ws.store.ForEach(fn); err != nil {
		return nil, &database.StoreError{Op: database.OpRead, Err: err}
	}

	sort.Strings(addresses)

	return addresses, nil
}

// PubKeyHash decodes an address for the store's network.
func (ws *Wallets) PubKeyHash(address string) ([]byte, error) {
	return PubKeyHash(address, ws.params)
}

// Address encodes a pub key hash for the store's network.
func (ws *Wallets) Address(pubKeyHash []byte) (string, error) {
	return Address(pubKeyHash, ws.params)
}
