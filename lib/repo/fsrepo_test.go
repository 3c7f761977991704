package repo

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Pollum-io/sysweb3/config"
)

func TestFSRepoInitAndReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")

	_, err := NewFSRepo(dir, nil)
	require.Error(t, err)

	r, err := NewFSRepo(dir, config.NewDefaultConfig())
	require.NoError(t, err)

	ok, err := Exists(dir)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.Store().Put([]byte("vault"), []byte("blob")))
	require.NoError(t, r.SetAPIAddr("127.0.0.1:9100"))
	addr, err := r.APIAddr()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9100", addr)

	// the lock is held while open
	_, err = NewFSRepo(dir, nil)
	require.Error(t, err)

	require.NoError(t, r.Close())

	r, err = NewFSRepo(dir, nil)
	require.NoError(t, err)
	defer r.Close()

	val, err := r.Store().Get([]byte("vault"))
	require.NoError(t, err)
	require.Equal(t, []byte("blob"), val)

	_, err = r.APIAddr()
	require.Error(t, err)
}

func TestFSRepoLevelDB(t *testing.T) {
	dir := t.TempDir()

	cfg := config.NewDefaultConfig()
	require.NoError(t, cfg.Set("data.backend", config.BackendLevelDB))

	r, err := NewFSRepo(dir, cfg)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, config.BackendLevelDB, r.Config().Data.Backend)
	require.NoError(t, r.Store().Put([]byte("keyring"), []byte("snapshot")))
	ok, err := r.Store().Has([]byte("keyring"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestReplaceConfig(t *testing.T) {
	dir := t.TempDir()

	r, err := NewFSRepo(dir, config.NewDefaultConfig())
	require.NoError(t, err)

	cfg := config.NewDefaultConfig()
	require.NoError(t, cfg.Set("log.level", "warn"))
	require.NoError(t, r.ReplaceConfig(cfg))
	require.NoError(t, r.Close())

	r, err = NewFSRepo(dir, nil)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, "warn", r.Config().Log.Level)
}

func TestMemRepo(t *testing.T) {
	r := NewInMemoryRepo()
	defer r.Close()

	_, err := r.APIAddr()
	require.Error(t, err)
	require.NoError(t, r.SetAPIAddr(":0"))
	require.NotNil(t, r.Store())
	require.Equal(t, "info", r.Config().Log.Level)
}
