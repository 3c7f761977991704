package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetOutputWhileLogging(t *testing.T) {
	dir := t.TempDir()
	l := Logger("logtest")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				l.Infow("tick", "worker", i, "n", j)
			}
		}(i)
	}

	SetOutput(filepath.Join(dir, "a.log"), 1, 1)
	SetOutput(filepath.Join(dir, "b.log"), 1, 1)
	wg.Wait()

	// handed out before the switch, written after it
	l.Info("after switch")
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(filepath.Join(dir, "b.log"))
	require.NoError(t, err)
	require.Contains(t, string(b), "after switch")
	require.Contains(t, string(b), "logtest")
	require.Same(t, l, Logger("logtest"))
}

func TestSetLevel(t *testing.T) {
	defer level.SetLevel(level.Level())

	require.Error(t, SetLevel("loud"))
	require.NoError(t, SetLevel("debug"))
	require.True(t, Logger("logtest").Desugar().Core().Enabled(-1))
	require.NoError(t, SetLevel("warn"))
	require.False(t, Logger("logtest").Desugar().Core().Enabled(0))
}
