package repo

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	lockfile "github.com/ipfs/go-fs-lock"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/config"
	"github.com/Pollum-io/sysweb3/lib/backend/dskv"
	"github.com/Pollum-io/sysweb3/lib/backend/kv"
	logging "github.com/Pollum-io/sysweb3/lib/log"
	"github.com/Pollum-io/sysweb3/lib/types/store"
)

const (
	apiFile            = "api"
	configFilename     = "config.json"
	tempConfigFilename = ".config.json.temp"
	lockFile           = "repo.lock"
)

var logger = logging.Logger("repo")

// FSRepo is a repo implementation backed by a filesystem.
type FSRepo struct {
	// Path to the repo root directory.
	path string

	// lk protects the config file
	lk  sync.RWMutex
	cfg *config.Config

	ds store.Store

	// lockfile is the file system lock to prevent others from opening the same repo.
	lockfile io.Closer
}

var _ Repo = (*FSRepo)(nil)

// NewFSRepo opens the wallet home at dir. A missing home is initialized
// with cfg, or refused when cfg is nil.
func NewFSRepo(dir string, cfg *config.Config) (*FSRepo, error) {
	repoPath, err := homedir.Expand(dir)
	if err != nil {
		return nil, err
	}

	if repoPath == "" { // path contained no separator
		repoPath = "./"
	}

	if err := ensureWritableDirectory(repoPath); err != nil {
		return nil, xerrors.Errorf("no writable directory: %w", err)
	}

	hasConfig, err := hasConfig(repoPath)
	if err != nil {
		return nil, xerrors.Errorf("failed to check for repo config: %w", err)
	}

	if !hasConfig {
		if cfg == nil {
			return nil, xerrors.Errorf("no wallet found at %s; run: 'init [--repo=%s]'", repoPath, repoPath)
		}
		logger.Info("initializing wallet home at: ", repoPath)
		if err = initConfig(repoPath, cfg); err != nil {
			return nil, xerrors.Errorf("initializing config file failed: %w", err)
		}
	}

	info, err := os.Stat(repoPath)
	if err != nil {
		return nil, xerrors.Errorf("failed to stat repo %s: %w", repoPath, err)
	}

	// Resolve path if it's a symlink.
	actualPath := repoPath
	if !info.IsDir() {
		actualPath, err = os.Readlink(repoPath)
		if err != nil {
			return nil, xerrors.Errorf("failed to follow repo symlink %s: %w", repoPath, err)
		}
	}

	r := &FSRepo{path: actualPath}

	r.lockfile, err = lockfile.Lock(r.path, lockFile)
	if err != nil {
		return nil, xerrors.Errorf("failed to take repo lock: %w", err)
	}

	if err := r.loadFromDisk(); err != nil {
		_ = r.lockfile.Close()
		return nil, err
	}

	logger.Info("open wallet home at: ", repoPath)

	return r, nil
}

func (r *FSRepo) loadFromDisk() error {
	if err := r.loadConfig(); err != nil {
		return xerrors.Errorf("failed to load config file: %w", err)
	}

	if err := r.openStore(); err != nil {
		return xerrors.Errorf("failed to open keyring store: %w", err)
	}

	return nil
}

func (r *FSRepo) Config() *config.Config {
	r.lk.RLock()
	defer r.lk.RUnlock()

	return r.cfg
}

// ReplaceConfig replaces the current config with the newly passed in one.
func (r *FSRepo) ReplaceConfig(cfg *config.Config) error {
	r.lk.Lock()
	defer r.lk.Unlock()

	tmp := filepath.Join(r.path, tempConfigFilename)
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := cfg.WriteFile(tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, filepath.Join(r.path, configFilename)); err != nil {
		return err
	}
	r.cfg = cfg
	return nil
}

func (r *FSRepo) Store() store.Store {
	return r.ds
}

// Close closes the repo.
func (r *FSRepo) Close() error {
	if err := r.ds.Close(); err != nil {
		return xerrors.Errorf("failed to close keyring store: %w", err)
	}

	if err := r.removeAPIFile(); err != nil {
		return xerrors.Errorf("failed to remove API file: %w", err)
	}

	return r.lockfile.Close()
}

func (r *FSRepo) removeAPIFile() error {
	err := os.Remove(filepath.Join(r.path, apiFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func hasConfig(p string) (bool, error) {
	configPath := filepath.Join(p, configFilename)

	_, err := os.Lstat(configPath)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

func (r *FSRepo) loadConfig() error {
	configFile := filepath.Join(r.path, configFilename)

	cfg, err := config.ReadFile(configFile)
	if err != nil {
		return xerrors.Errorf("failed to read config file at %q: %w", configFile, err)
	}

	r.cfg = cfg
	return nil
}

func (r *FSRepo) storePath() string {
	p := r.cfg.Data.Path
	if p == "" {
		p = "keyring"
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.path, p)
	}
	return p
}

func (r *FSRepo) openStore() error {
	p := r.storePath()

	switch r.cfg.Data.Backend {
	case config.BackendLevelDB:
		ds, err := dskv.NewLevelStore(p)
		if err != nil {
			return err
		}
		r.ds = ds
	case config.BackendBadger, "":
		opt := kv.DefaultOptions
		ds, err := kv.NewBadgerStore(p, &opt)
		if err != nil {
			return err
		}
		r.ds = ds
	default:
		return xerrors.Errorf("unknown store backend %q", r.cfg.Data.Backend)
	}

	return nil
}

func initConfig(p string, cfg *config.Config) error {
	configFile := filepath.Join(p, configFilename)
	exists, err := fileExists(configFile)
	if err != nil {
		return xerrors.Errorf("failed to inspect config file: %w", err)
	} else if exists {
		return xerrors.Errorf("config file already exists: %s", configFile)
	}

	return cfg.WriteFile(configFile)
}

// Ensures that path points to a read/writable directory, creating it if necessary.
func ensureWritableDirectory(path string) error {
	// Attempt to create the requested directory, accepting that something might already be there.
	err := os.Mkdir(path, 0700)

	if err == nil {
		return nil // Skip the checks below, we just created it.
	} else if !os.IsExist(err) {
		return xerrors.Errorf("failed to create directory %s: %w", path, err)
	}

	// Inspect existing directory.
	stat, err := os.Stat(path)
	if err != nil {
		return xerrors.Errorf("failed to stat path %s: %w", path, err)
	}
	if !stat.IsDir() {
		return xerrors.Errorf("%s is not a directory", path)
	}
	if (stat.Mode() & 0600) != 0600 {
		return xerrors.Errorf("insufficient permissions for path %s, got %04o need %04o", path, stat.Mode(), 0600)
	}
	return nil
}

// Exists reports whether a wallet home was initialized at repoPath.
func Exists(repoPath string) (bool, error) {
	ok, err := fileExists(filepath.Join(repoPath, configFilename))
	if err != nil {
		return false, err
	}
	return ok, nil
}

func fileExists(file string) (bool, error) {
	_, err := os.Stat(file)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// SetAPIAddr writes the address to the API file.
func (r *FSRepo) SetAPIAddr(addr string) error {
	f, err := os.Create(filepath.Join(r.path, apiFile))
	if err != nil {
		return xerrors.Errorf("could not create API file: %w", err)
	}

	defer f.Close() // nolint: errcheck

	_, err = f.WriteString(addr)
	if err != nil {
		if err := r.removeAPIFile(); err != nil {
			return xerrors.Errorf("failed to remove API file: %w", err)
		}

		return xerrors.Errorf("failed to write to API file: %w", err)
	}

	return nil
}

// APIAddr reads the FSRepo's api file and returns the api address
func (r *FSRepo) APIAddr() (string, error) {
	b, err := ioutil.ReadFile(filepath.Join(filepath.Clean(r.path), apiFile))
	if err != nil {
		return "", xerrors.Errorf("failed to read API file: %w", err)
	}

	return string(b), nil
}

// Path returns the path the fsrepo is at
func (r *FSRepo) Path() (string, error) {
	return r.path, nil
}
