package domain

// Config represents the application configuration.
type Config struct {
	Providers map[string]ProviderConfig `toml:"providers"` // [providers.<name>] sections
	DataDir   string                    `toml:"data_dir"`  // Overrides the default data directory
	Store     StoreConfig               `toml:"store"`
	Sync      SyncConfig                `toml:"sync"`
	Log       LogConfig                 `toml:"log"`
}

// StoreConfig holds task store settings from the [store] section.
type StoreConfig struct {
	DebounceMS int `toml:"debounce_ms"` // Persistence debounce window in milliseconds
}

// SyncConfig holds sync engine settings from the [sync] section.
type SyncConfig struct {
	Strategy string `toml:"strategy"` // remote-wins, local-wins, newest-wins
}

// ProviderConfig holds per-provider settings from [providers.<name>] sections.
type ProviderConfig struct {
	Kind    string `toml:"kind"`     // Provider implementation, e.g. "rest"
	BaseURL string `toml:"base_url"` // API endpoint root
	Token   string `toml:"token"`    // Bearer token (OAuth flow is external)
	Project string `toml:"project"`  // Remote project/list to sync against
}

// LogConfig holds logging settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// NewDefaultConfig returns the configuration defaults applied before any file
// is merged in.
func NewDefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{DebounceMS: 300},
		Sync:  SyncConfig{Strategy: string(NewestWins)},
		Log:   LogConfig{Level: "info"},
	}
}
