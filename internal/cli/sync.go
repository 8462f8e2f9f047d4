package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okui/taskdeck/internal/app"
	"github.com/okui/taskdeck/internal/syncengine"
)

// newSyncCommand creates the sync command.
func newSyncCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Provider string
		PullOnly bool
		PushOnly bool
		DryRun   bool
	}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize tasks with an external tracker",
		Long: `Run one sync pass against a configured provider: pull remote
changes, push local changes, reconcile deletions.

Examples:
  taskdeck sync
  taskdeck sync --provider work --dry-run
  taskdeck sync --pull-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.PullOnly && opts.PushOnly {
				return fmt.Errorf("--pull-only and --push-only are mutually exclusive")
			}

			name := opts.Provider
			if name == "" {
				var err error
				name, err = c.DefaultProviderName()
				if err != nil {
					return err
				}
			}

			engine, err := c.SyncEngine(name)
			if err != nil {
				return err
			}

			if !opts.DryRun {
				// Snapshot first so a bad pass is recoverable by hand.
				if _, err := c.Snapshotter().Snapshot("pre-sync"); err != nil {
					c.Logger.Warn(name, "snapshot", err.Error())
				}
			}

			res, err := engine.Sync(cmd.Context(), syncengine.Options{
				PullOnly: opts.PullOnly,
				PushOnly: opts.PushOnly,
				DryRun:   opts.DryRun,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.DryRun {
				_, _ = fmt.Fprint(out, "Dry run: ")
			}
			_, _ = fmt.Fprintf(out, "%s\n", res.Summary())
			for _, ie := range res.Errors {
				_, _ = fmt.Fprintf(out, "  error: %s\n", ie.Error())
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%d item(s) failed", len(res.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Provider, "provider", "", "Provider name (default: the only configured one)")
	cmd.Flags().BoolVar(&opts.PullOnly, "pull-only", false, "Only pull remote changes")
	cmd.Flags().BoolVar(&opts.PushOnly, "push-only", false, "Only push local changes")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report what would change without mutating anything")

	return cmd
}

// newStatusCommand creates the status command.
func newStatusCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store and sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Data dir:  %s\n", c.Paths.DataDir)
			_, _ = fmt.Fprintf(out, "Tasks:     %d\n", st.Len())
			if id := st.ActiveTimerTask(); id != "" {
				_, _ = fmt.Fprintf(out, "Timing:    %s\n", shortID(id))
			}
			if err := st.SaveError(); err != nil {
				_, _ = fmt.Fprintf(out, "Save:      FAILING (%v)\n", err)
			}

			state := c.SyncState()
			for _, name := range c.ProviderNames() {
				provider, err := c.Provider(name)
				if err != nil {
					continue
				}
				last := "never"
				if t := state.LastSync(name); !t.IsZero() {
					last = t.Format("2006-01-02 15:04")
				}
				connStatus, _ := provider.TestConnection(cmd.Context())
				conn := "ok"
				if !connStatus.OK {
					conn = connStatus.Err
				}
				_, _ = fmt.Fprintf(out, "Provider:  %s (last sync %s, connection %s)\n", name, last, conn)
			}
			return nil
		},
	}
	return cmd
}
