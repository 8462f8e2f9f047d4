package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/okui/taskdeck/internal/app"
	"github.com/okui/taskdeck/internal/tui"
)

// newTUICommand creates the tui command.
func newTUICommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse tasks interactively",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return launchTUI(c)
		},
	}
	return cmd
}

func launchTUI(c *app.Container) error {
	st, err := c.Store()
	if err != nil {
		return err
	}
	p := tea.NewProgram(tui.New(st, c.SyncState()), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
