package commands

import (
	"context"
	"path/filepath"
	"testing"

	"cccbdb-harvester/internal/registry"

	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	config := filepath.Join(t.TempDir(), "missing.json5")
	rootCmd.SetArgs(append([]string{"--config", config}, args...))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return execute(context.Background())
}

func TestCommandErrorIsReturned(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "registry.json")

	err := runCommand(t, "status", missing)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")

	err = runCommand(t, "reset", missing, "7732-18-5")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestResetForgetsFailures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg := registry.New()
	reg.MarkDone("7732185")
	reg.MarkFailed("64175", "gave up after 3 attempts")
	require.NoError(t, reg.Persist(path))

	require.NoError(t, runCommand(t, "reset", path, "--failed"))

	reloaded, err := registry.Load(path)
	require.NoError(t, err)
	done, failed := reloaded.Counts()
	require.Equal(t, 1, done)
	require.Zero(t, failed)
	require.True(t, reloaded.IsDone("7732185"))

	err = runCommand(t, "reset", path, "not-a-cas")
	require.Error(t, err)
}
