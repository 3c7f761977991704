package kv

import (
	"io"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v2"
	"go.uber.org/zap"

	logger "github.com/Pollum-io/sysweb3/lib/log"
	"github.com/Pollum-io/sysweb3/lib/types/store"
)

var log = logger.Logger("badger")

type compatLogger struct {
	*zap.SugaredLogger
}

// for compatibility
func (logger *compatLogger) Warningf(format string, args ...interface{}) {
	logger.Warnf(format, args...)
}

var _ store.Store = (*BadgerStore)(nil)
var _ store.Backuper = (*BadgerStore)(nil)

// BadgerStore keeps the keyring records on disk. Writes are synced, the
// vault must survive a crash right after persist returns.
type BadgerStore struct {
	db *badger.DB

	closeLk   sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closing   chan struct{}

	gcDiscardRatio float64
	gcInterval     time.Duration
}

type Options struct {
	// Please refer to the Badger docs to see what this is for
	GcDiscardRatio float64

	// Interval between GC cycles
	//
	// If zero, the store will perform no automatic garbage collection.
	GcInterval time.Duration

	badger.Options
}

var DefaultOptions Options

func init() {
	DefaultOptions = Options{
		GcDiscardRatio: 0.5,
		GcInterval:     15 * time.Minute,
		Options:        badger.DefaultOptions(""),
	}
	DefaultOptions.Options.CompactL0OnClose = false
	DefaultOptions.Options.SyncWrites = true
}

// NewBadgerStore opens (or creates) a store under path.
//
// DO NOT set the Dir and/or ValueDir fields of opt, they will be set for you.
func NewBadgerStore(path string, options *Options) (*BadgerStore, error) {
	if options == nil {
		options = &DefaultOptions
	}

	opt := options.Options
	opt.Dir = path
	opt.ValueDir = path
	opt.Logger = &compatLogger{log}

	db, err := badger.Open(opt)
	if err != nil {
		return nil, err
	}

	bs := &BadgerStore{
		db:             db,
		closing:        make(chan struct{}),
		gcDiscardRatio: options.GcDiscardRatio,
		gcInterval:     options.GcInterval,
	}

	if bs.gcInterval > 0 {
		go bs.periodicGC()
	}

	return bs, nil
}

func (d *BadgerStore) periodicGC() {
	gcTimeout := time.NewTimer(d.gcInterval)
	defer gcTimeout.Stop()

	for {
		select {
		case <-gcTimeout.C:
			switch err := d.gcOnce(); err {
			case nil, badger.ErrNoRewrite, badger.ErrRejected:
			case store.ErrClosed:
				return
			default:
				log.Errorf("error during a GC cycle: %s", err)
			}
			gcTimeout.Reset(d.gcInterval)
		case <-d.closing:
			return
		}
	}
}

func (d *BadgerStore) Put(key, value []byte) error {
	d.closeLk.RLock()
	defer d.closeLk.RUnlock()
	if d.closed {
		return store.ErrClosed
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// key not found is not as error
func (d *BadgerStore) Get(key []byte) ([]byte, error) {
	d.closeLk.RLock()
	defer d.closeLk.RUnlock()
	if d.closed {
		return nil, store.ErrClosed
	}

	var val []byte
	err := d.db.View(func(txn *badger.Txn) error {
		switch item, err := txn.Get(key); err {
		case badger.ErrKeyNotFound:
			return nil
		case nil:
			val, err = item.ValueCopy(nil)
			return err
		default:
			return err
		}
	})
	return val, err
}

func (d *BadgerStore) Has(key []byte) (bool, error) {
	d.closeLk.RLock()
	defer d.closeLk.RUnlock()
	if d.closed {
		return false, store.ErrClosed
	}

	exist := false
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch err {
		case nil:
			exist = true
			return nil
		case badger.ErrKeyNotFound:
			return nil
		default:
			return err
		}
	})
	return exist, err
}

func (d *BadgerStore) Delete(key []byte) error {
	d.closeLk.RLock()
	defer d.closeLk.RUnlock()
	if d.closed {
		return store.ErrClosed
	}

	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (d *BadgerStore) Close() error {
	d.closeOnce.Do(func() {
		close(d.closing)
	})
	d.closeLk.Lock()
	defer d.closeLk.Unlock()
	if d.closed {
		return store.ErrClosed
	}

	d.closed = true
	return d.db.Close()
}

// Backup streams a full dump of the store to w.
func (d *BadgerStore) Backup(w io.Writer) error {
	d.closeLk.RLock()
	defer d.closeLk.RUnlock()
	if d.closed {
		return store.ErrClosed
	}

	_, err := d.db.Backup(w, 0)
	return err
}

// Restore loads a dump written by Backup.
func (d *BadgerStore) Restore(r io.Reader) error {
	d.closeLk.RLock()
	defer d.closeLk.RUnlock()
	if d.closed {
		return store.ErrClosed
	}

	return d.db.Load(r, 256)
}

func (d *BadgerStore) gcOnce() error {
	d.closeLk.RLock()
	defer d.closeLk.RUnlock()
	if d.closed {
		return store.ErrClosed
	}
	return d.db.RunValueLogGC(d.gcDiscardRatio)
}
