package paths

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepoPathGet(t *testing.T) {
	t.Run("get default repo path", func(t *testing.T) {
		t.Setenv(HomePathVar, "")
		p, err := GetRepoPath("")
		require.NoError(t, err)
		require.Contains(t, p, ".sysweb3")
	})

	t.Run("env overrides default", func(t *testing.T) {
		t.Setenv(HomePathVar, "/tmp/wallet-env")
		p, err := GetRepoPath("")
		require.NoError(t, err)
		require.Equal(t, "/tmp/wallet-env", p)
	})

	t.Run("override wins", func(t *testing.T) {
		t.Setenv(HomePathVar, "/tmp/wallet-env")
		p, err := GetRepoPath("/tmp/wallet-flag")
		require.NoError(t, err)
		require.Equal(t, "/tmp/wallet-flag", p)
	})
}
