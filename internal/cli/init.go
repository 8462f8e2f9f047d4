package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/okui/taskdeck/internal/app"
	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/infra/config"
)

// newInitCommand creates the init command.
func newInitCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the data directory",
		Long: `Create the data directory with an empty task file and a default
config.toml. Safe to run repeatedly; existing files are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(c.Paths.DataDir, 0o750); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}

			configPath := filepath.Join(c.Paths.DataDir, config.ConfigFileName)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				content, err := toml.Marshal(domain.NewDefaultConfig())
				if err != nil {
					return fmt.Errorf("render default config: %w", err)
				}
				if err := os.WriteFile(configPath, content, 0o600); err != nil {
					return fmt.Errorf("write default config: %w", err)
				}
			}

			// Opening the store writes an empty tasks.json when none exists.
			st, err := c.Store()
			if err != nil {
				return err
			}
			if err := st.Flush(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", c.Paths.DataDir)
			return nil
		},
	}
	return cmd
}
