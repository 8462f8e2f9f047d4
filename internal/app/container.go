// Package app provides the dependency injection container for the application.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/infra/backup"
	"github.com/okui/taskdeck/internal/infra/config"
	"github.com/okui/taskdeck/internal/infra/logging"
	"github.com/okui/taskdeck/internal/provider/rest"
	"github.com/okui/taskdeck/internal/store"
	"github.com/okui/taskdeck/internal/syncengine"
	"github.com/okui/taskdeck/internal/syncstate"
)

// Paths holds the resolved file locations inside the data directory.
type Paths struct {
	DataDir   string // Root data directory
	StorePath string // Path to tasks.json
	StatePath string // Path to syncstate.json
}

func newPaths(dataDir string) Paths {
	return Paths{
		DataDir:   dataDir,
		StorePath: filepath.Join(dataDir, "tasks.json"),
		StatePath: filepath.Join(dataDir, "syncstate.json"),
	}
}

// ResolveDataDir picks the data directory: the explicit flag value, then the
// TASKDECK_DIR environment variable, then ~/.taskdeck.
func ResolveDataDir(flagDir string) (string, error) {
	if flagDir != "" {
		return flagDir, nil
	}
	if env := os.Getenv("TASKDECK_DIR"); env != "" {
		return env, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".taskdeck"), nil
}

// Container provides dependency injection for the application.
// It holds the configuration and lazily opened infrastructure.
type Container struct {
	Clock  domain.Clock
	Config *domain.Config
	Logger *logging.Logger

	store *store.Store
	state *syncstate.Manager

	Paths Paths
}

// New creates a Container rooted at the given data directory. An empty
// dataDir falls back to the environment/default resolution. The directory
// itself is created on demand by the store, not here.
func New(dataDir string) (*Container, error) {
	dir, err := ResolveDataDir(dataDir)
	if err != nil {
		return nil, err
	}

	cfg, err := config.NewLoader(dir).Load()
	if err != nil {
		return nil, err
	}
	// A global config may redirect the data directory.
	if cfg.DataDir != "" && cfg.DataDir != dir && dataDir == "" && os.Getenv("TASKDECK_DIR") == "" {
		dir = cfg.DataDir
		cfg, err = config.NewLoader(dir).Load()
		if err != nil {
			return nil, err
		}
	}

	return &Container{
		Clock:  domain.RealClock{},
		Config: cfg,
		Logger: logging.New(dir, logging.ParseLevel(cfg.Log.Level)),
		Paths:  newPaths(dir),
	}, nil
}

// NewWithDeps creates a Container with custom dependencies for testing.
func NewWithDeps(paths Paths, cfg *domain.Config, clock domain.Clock, logger *logging.Logger) *Container {
	return &Container{
		Clock:  clock,
		Config: cfg,
		Logger: logger,
		Paths:  paths,
	}
}

// Store returns the task store, opening it on first use.
func (c *Container) Store() (*store.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	if err := os.MkdirAll(c.Paths.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.Open(c.Paths.StorePath,
		store.WithClock(c.Clock),
		store.WithLogger(c.Logger),
		store.WithDebounce(time.Duration(c.Config.Store.DebounceMS)*time.Millisecond),
	)
	if err != nil {
		return nil, err
	}
	c.store = st
	return st, nil
}

// SyncState returns the sync state manager, loading it on first use.
func (c *Container) SyncState() *syncstate.Manager {
	if c.state == nil {
		c.state = syncstate.Open(c.Paths.StatePath)
	}
	return c.state
}

// Provider builds the named provider from configuration.
func (c *Container) Provider(name string) (domain.Provider, error) {
	pc, ok := c.Config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotFound, name)
	}
	switch pc.Kind {
	case "", "rest":
		return rest.New(name, pc), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider kind %q", domain.ErrProviderNotFound, pc.Kind)
	}
}

// ProviderNames returns the configured provider names, sorted.
func (c *Container) ProviderNames() []string {
	names := make([]string, 0, len(c.Config.Providers))
	for name := range c.Config.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProviderName returns the sole configured provider, or an error when
// the choice is ambiguous.
func (c *Container) DefaultProviderName() (string, error) {
	names := c.ProviderNames()
	switch len(names) {
	case 0:
		return "", fmt.Errorf("%w: no providers configured", domain.ErrProviderNotFound)
	case 1:
		return names[0], nil
	default:
		return "", fmt.Errorf("multiple providers configured (%v); use --provider", names)
	}
}

// SyncEngine builds a sync engine for the named provider using the configured
// conflict strategy.
func (c *Container) SyncEngine(providerName string) (*syncengine.Engine, error) {
	st, err := c.Store()
	if err != nil {
		return nil, err
	}
	provider, err := c.Provider(providerName)
	if err != nil {
		return nil, err
	}
	strategy := domain.ConflictStrategy(c.Config.Sync.Strategy)
	return syncengine.New(st, provider, c.SyncState(), strategy,
		syncengine.WithClock(c.Clock),
		syncengine.WithLogger(c.Logger),
	), nil
}

// Snapshotter returns the data directory snapshotter.
func (c *Container) Snapshotter() *backup.Snapshotter {
	return backup.New(c.Paths.DataDir)
}

// Close flushes and releases everything the container opened.
func (c *Container) Close() error {
	var firstErr error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			firstErr = err
		}
	}
	if c.state != nil {
		if err := c.state.Save(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.Logger != nil {
		if err := c.Logger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
