// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/okui/taskdeck/internal/domain"
)

// ConfigFileName is the configuration file name in both locations.
const ConfigFileName = "config.toml"

// Loader loads configuration from TOML files. The data-dir config takes
// precedence over the global one.
type Loader struct {
	dataDir       string // Path to the taskdeck data directory
	globalConfDir string // e.g. ~/.config/taskdeck
}

// NewLoader creates a Loader for the given data directory.
func NewLoader(dataDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a Loader with a custom global config
// directory. Useful for testing.
func NewLoaderWithGlobalDir(dataDir, globalConfDir string) *Loader {
	return &Loader{
		dataDir:       dataDir,
		globalConfDir: globalConfDir,
	}
}

func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "taskdeck")
}

// Load returns the merged configuration: defaults <- global <- data dir.
func (l *Loader) Load() (*domain.Config, error) {
	var global *domain.Config
	var err error
	if l.globalConfDir != "" {
		global, err = l.loadFile(filepath.Join(l.globalConfDir, ConfigFileName))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	local, err := l.loadFile(filepath.Join(l.dataDir, ConfigFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	base := domain.NewDefaultConfig()
	if global != nil {
		mergeConfigs(base, global)
	}
	if local != nil {
		mergeConfigs(base, local)
	}
	if !domain.ConflictStrategy(base.Sync.Strategy).Valid() {
		return nil, fmt.Errorf("invalid sync strategy %q", base.Sync.Strategy)
	}
	return base, nil
}

func (l *Loader) loadFile(path string) (*domain.Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg domain.Config
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// mergeConfigs overlays src onto dst; set fields in src take precedence.
func mergeConfigs(dst, src *domain.Config) {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.Store.DebounceMS != 0 {
		dst.Store.DebounceMS = src.Store.DebounceMS
	}
	if src.Sync.Strategy != "" {
		dst.Sync.Strategy = src.Sync.Strategy
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	for name, p := range src.Providers {
		if dst.Providers == nil {
			dst.Providers = make(map[string]domain.ProviderConfig)
		}
		dst.Providers[name] = p
	}
}
