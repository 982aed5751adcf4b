package database

// Storage interface represents the behavior required to be implemented by any
// package providing a key-value store for the ledger, the spent-output index
// or the wallets.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	ForEach(fn func(key []byte, value []byte) error) error
	Flush() error
	Close() error
}
