package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, loadEnvFile(filepath.Join(dir, "missing.env"), false))
	require.Error(t, loadEnvFile(filepath.Join(dir, "missing.env"), true))

	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("COFFEESHOP_TEST_VALUE=espresso\n"), 0o600))
	t.Setenv("COFFEESHOP_TEST_VALUE", "")
	require.NoError(t, os.Unsetenv("COFFEESHOP_TEST_VALUE"))
	require.NoError(t, loadEnvFile(path, true))
	require.Equal(t, "espresso", os.Getenv("COFFEESHOP_TEST_VALUE"))
}

func TestMigrateRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "--env-file", "", "--reset"})
	err := root.Execute()
	require.Error(t, err)
	require.Contains(t, err.Error(), "POSTGRES_DSN")
}
