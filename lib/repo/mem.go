package repo

import (
	"sync"

	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/config"
	"github.com/Pollum-io/sysweb3/lib/backend/dskv"
	"github.com/Pollum-io/sysweb3/lib/types/store"
)

// MemRepo is an in-memory implementation of the repo interface.
type MemRepo struct {
	// lk guards the config
	lk         sync.RWMutex
	C          *config.Config
	S          store.Store
	apiAddress string
}

var _ Repo = (*MemRepo)(nil)

// NewInMemoryRepo makes a new instance of MemRepo
func NewInMemoryRepo() *MemRepo {
	return &MemRepo{
		C: config.NewDefaultConfig(),
		S: dskv.NewMemStore(),
	}
}

func (mr *MemRepo) Config() *config.Config {
	mr.lk.RLock()
	defer mr.lk.RUnlock()

	return mr.C
}

// ReplaceConfig replaces the current config with the newly passed in one.
func (mr *MemRepo) ReplaceConfig(cfg *config.Config) error {
	mr.lk.Lock()
	defer mr.lk.Unlock()

	mr.C = cfg

	return nil
}

func (mr *MemRepo) Store() store.Store {
	return mr.S
}

func (mr *MemRepo) SetAPIAddr(addr string) error {
	mr.lk.Lock()
	defer mr.lk.Unlock()

	mr.apiAddress = addr
	return nil
}

func (mr *MemRepo) APIAddr() (string, error) {
	mr.lk.RLock()
	defer mr.lk.RUnlock()

	if mr.apiAddress == "" {
		return "", xerrors.New("no api address")
	}
	return mr.apiAddress, nil
}

func (mr *MemRepo) Path() (string, error) {
	return "<in-memory>", nil
}

func (mr *MemRepo) Close() error {
	return mr.S.Close()
}
