package dskv

import (
	"context"
	"errors"

	ds "github.com/ipfs/go-datastore"
	dss "github.com/ipfs/go-datastore/sync"
	leveldb "github.com/ipfs/go-ds-leveldb"

	logging "github.com/Pollum-io/sysweb3/lib/log"
	"github.com/Pollum-io/sysweb3/lib/types/store"
)

var logger = logging.Logger("datastore")

// Datastore adapts any go-datastore backend to the keyring store contract.
// Keys are namespaced under prefix.
type Datastore struct {
	prefix ds.Key
	db     ds.Datastore
}

var _ store.Store = (*Datastore)(nil)

func New(prefix string, db ds.Datastore) *Datastore {
	return &Datastore{
		prefix: ds.NewKey(prefix),
		db:     db,
	}
}

// NewMemStore is a thread safe in-memory store, mostly for tests and
// ephemeral sessions.
func NewMemStore() *Datastore {
	return New("/keyring", dss.MutexWrap(ds.NewMapDatastore()))
}

// NewLevelStore opens a leveldb backed store at path.
func NewLevelStore(path string) (*Datastore, error) {
	db, err := leveldb.NewDatastore(path, nil)
	if err != nil {
		return nil, err
	}
	logger.Debug("open leveldb store at: ", path)
	return New("/keyring", db), nil
}

func (d *Datastore) key(k []byte) ds.Key {
	return d.prefix.ChildString(string(k))
}

func (d *Datastore) Put(key, value []byte) error {
	return d.db.Put(context.TODO(), d.key(key), value)
}

// key not found is not as error
func (d *Datastore) Get(key []byte) ([]byte, error) {
	val, err := d.db.Get(context.TODO(), d.key(key))
	if errors.Is(err, ds.ErrNotFound) {
		return nil, nil
	}
	return val, err
}

func (d *Datastore) Has(key []byte) (bool, error) {
	return d.db.Has(context.TODO(), d.key(key))
}

func (d *Datastore) Delete(key []byte) error {
	return d.db.Delete(context.TODO(), d.key(key))
}

func (d *Datastore) Close() error {
	return d.db.Close()
}
