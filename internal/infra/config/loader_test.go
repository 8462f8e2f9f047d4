package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okui/taskdeck/internal/infra/config"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(content), 0o600))
}

func TestLoadDefaultsWhenNoFiles(t *testing.T) {
	t.Parallel()
	l := config.NewLoaderWithGlobalDir(t.TempDir(), t.TempDir())

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Store.DebounceMS)
	assert.Equal(t, "newest-wins", cfg.Sync.Strategy)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMergePrecedence(t *testing.T) {
	t.Parallel()
	globalDir := t.TempDir()
	dataDir := t.TempDir()

	// Global sets two fields; the data-dir config overrides one of them.
	writeConfig(t, globalDir, `
[sync]
strategy = "remote-wins"

[log]
level = "debug"
`)
	writeConfig(t, dataDir, `
[sync]
strategy = "local-wins"
`)

	cfg, err := config.NewLoaderWithGlobalDir(dataDir, globalDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "local-wins", cfg.Sync.Strategy, "data-dir wins over global")
	assert.Equal(t, "debug", cfg.Log.Level, "unset locally, global survives")
	assert.Equal(t, 300, cfg.Store.DebounceMS, "unset everywhere, default survives")
}

func TestLoadProviders(t *testing.T) {
	t.Parallel()
	globalDir := t.TempDir()
	dataDir := t.TempDir()

	writeConfig(t, globalDir, `
[providers.work]
kind = "rest"
base_url = "https://api.example.com"
token = "global-token"
`)
	writeConfig(t, dataDir, `
[providers.work]
kind = "rest"
base_url = "https://api.example.com"
token = "local-token"
project = "inbox"

[providers.home]
kind = "rest"
base_url = "https://home.example.com"
`)

	cfg, err := config.NewLoaderWithGlobalDir(dataDir, globalDir).Load()
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "local-token", cfg.Providers["work"].Token, "whole provider section replaced")
	assert.Equal(t, "inbox", cfg.Providers["work"].Project)
	assert.Equal(t, "https://home.example.com", cfg.Providers["home"].BaseURL)
}

func TestLoadRejectsInvalidStrategy(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()
	writeConfig(t, dataDir, `
[sync]
strategy = "coin-flip"
`)

	_, err := config.NewLoaderWithGlobalDir(dataDir, t.TempDir()).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coin-flip")
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	t.Parallel()
	dataDir := t.TempDir()
	writeConfig(t, dataDir, "[sync\nstrategy =")

	_, err := config.NewLoaderWithGlobalDir(dataDir, t.TempDir()).Load()
	require.Error(t, err)
}

func TestLoadDataDirRedirect(t *testing.T) {
	t.Parallel()
	globalDir := t.TempDir()
	writeConfig(t, globalDir, `data_dir = "/srv/tasks"`)

	cfg, err := config.NewLoaderWithGlobalDir(t.TempDir(), globalDir).Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/tasks", cfg.DataDir)
}
