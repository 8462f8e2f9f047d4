package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okui/taskdeck/internal/app"
)

// newSnapshotCommand creates the snapshot command.
func newSnapshotCommand(c *app.Container) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Commit the data files into the embedded backup repository",
		Long: `Record the current tasks.json, syncstate.json and config.toml as a
commit in a git repository inside the data directory. Recovery is
manual: git checkout inside the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			if err := st.Flush(); err != nil {
				return err
			}

			hash, err := c.Snapshotter().Snapshot(message)
			if err != nil {
				return err
			}
			if hash == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to snapshot")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %s\n", hash[:12])
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Snapshot message")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := c.Snapshotter().List(20)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
				return nil
			}
			for _, info := range infos {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
					info.Hash[:12], info.When.Format("2006-01-02 15:04"),
					strings.TrimSpace(info.Message))
			}
			return nil
		},
	}
	cmd.AddCommand(list)

	return cmd
}
