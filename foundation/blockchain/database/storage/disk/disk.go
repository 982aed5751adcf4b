// Package disk implements the database.Storage interface on top of a bbolt
// file. Each store lives in its own file with a single bucket.
package disk

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ardanlabs/utxochain/foundation/blockchain/database"
	bolt "go.etcd.io/bbolt"
)

// bucket is the name of the bucket holding every key in the file.
var bucket = []byte("store")

// openTimeout bounds how long Open waits for another process holding the
// file lock.
const openTimeout = time.Second

// Disk represents the storage implementation for reading and writing
// key-value pairs to a bbolt file. This implements the database.Storage
// interface.
type Disk struct {
	db *bolt.DB
}

// New opens or creates the bbolt file at the specified path. Any missing
// parent directories are created.
func New(path string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &database.StoreError{Op: database.OpInit, Key: path, Err: err}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, &database.StoreError{Op: database.OpInit, Key: path, Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, &database.StoreError{Op: database.OpInit, Key: path, Err: err}
	}

	return &Disk{db: db}, nil
}

// Get returns a copy of the value for the key, or database.ErrKeyNotFound.
func (d *Disk) Get(key []byte) ([]byte, error) {
	var value []byte

	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return database.ErrKeyNotFound
		}

		// The slice is only valid for the life of the transaction.
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}

// Put writes the value for the key, replacing any existing value.
func (d *Disk) Put(key []byte, value []byte) error {
	if len(key) == 0 {
		return errors.New("empty key")
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, value)
	})
}

// ForEach calls the function for every key-value pair in key order. The
// slices passed to the function are copies owned by the caller.
func (d *Disk) ForEach(fn func(key []byte, value []byte) error) error {
	return d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			key := append([]byte(nil), k...)
			value := append([]byte(nil), v...)
			return fn(key, value)
		})
	})
}

// Flush forces the file to disk. Committed updates are already synced
// unless the file was opened with NoSync, in which case this matters.
func (d *Disk) Flush() error {
	if err := d.db.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", d.db.Path(), err)
	}
	return nil
}

// Close releases the file and its lock.
func (d *Disk) Close() error {
	return d.db.Close()
}
