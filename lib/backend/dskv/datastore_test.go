package dskv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Pollum-io/sysweb3/lib/types/store"
)

func exercise(t *testing.T, s store.Store) {
	val, err := s.Get([]byte("keyring"))
	require.NoError(t, err)
	require.Nil(t, val)

	require.NoError(t, s.Put([]byte("keyring"), []byte("snapshot")))

	ok, err := s.Has([]byte("keyring"))
	require.NoError(t, err)
	require.True(t, ok)

	val, err = s.Get([]byte("keyring"))
	require.NoError(t, err)
	require.Equal(t, []byte("snapshot"), val)

	require.NoError(t, s.Delete([]byte("keyring")))

	ok, err = s.Has([]byte("keyring"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	defer s.Close()

	exercise(t, s)
}

func TestLevelStore(t *testing.T) {
	s, err := NewLevelStore(filepath.Join(t.TempDir(), "level"))
	require.NoError(t, err)
	defer s.Close()

	exercise(t, s)
}

func TestPrefixIsolation(t *testing.T) {
	mem := NewMemStore()
	other := New("/other", mem.db)

	require.NoError(t, mem.Put([]byte("vault"), []byte("a")))

	val, err := other.Get([]byte("vault"))
	require.NoError(t, err)
	require.Nil(t, val)
}
