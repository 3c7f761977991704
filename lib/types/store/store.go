package store

import (
	"errors"
	"io"
)

var ErrClosed = errors.New("store closed")

// Store is the key/value contract the keyring persists through.
// Get on a missing key returns a nil value and a nil error.
type Store interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	Close() error
}

// Backuper is implemented by stores that can dump and reload themselves.
type Backuper interface {
	Backup(w io.Writer) error
	Restore(r io.Reader) error
}
