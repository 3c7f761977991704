package repo

import (
	"github.com/Pollum-io/sysweb3/config"
	"github.com/Pollum-io/sysweb3/lib/types/store"
)

// Repo is the wallet home: configuration plus the keyring store.
type Repo interface {
	Config() *config.Config

	// ReplaceConfig replaces the current config, with the newly passed in one.
	ReplaceConfig(cfg *config.Config) error

	// Store holds the vault, snapshot and bootstrap records.
	Store() store.Store

	// SetAPIAddr records the address of the running metrics endpoint.
	SetAPIAddr(addr string) error

	// APIAddr returns the address of the running metrics endpoint.
	APIAddr() (string, error)

	// Path returns the repo path.
	Path() (string, error)

	// Close shuts down the repo.
	Close() error
}
