package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okui/taskdeck/internal/app"
	"github.com/okui/taskdeck/internal/syncstate"
)

// newDoneCommand creates the done command. Recurring tasks roll forward to
// their next occurrence.
func newDoneCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			t, err := resolveTask(st, args[0])
			if err != nil {
				return err
			}

			next, err := st.CompleteRecurring(t.ID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", t.Title)
			if next != nil {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Next occurrence %s due %s\n",
					shortID(next.ID), formatDue(next.DueDate))
			}
			if unblocked := st.GetUnblockedTasks(t.ID); len(unblocked) > 0 {
				short := make([]string, len(unblocked))
				for i, id := range unblocked {
					short[i] = shortID(id)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Unblocked: %s\n", strings.Join(short, ", "))
			}
			return st.Flush()
		},
	}
	return cmd
}

// newDeleteCommand creates the delete command. Deleting a synced task marks it
// for remote deletion on the next sync pass.
func newDeleteCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task and its subtasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			t, err := resolveTask(st, args[0])
			if err != nil {
				return err
			}

			state := c.SyncState()
			if !syncstate.DeleteTaskTree(st, state, t.ID) {
				return nil
			}
			if err := state.Save(); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", shortID(t.ID))
			return st.Flush()
		},
	}
	return cmd
}

// newIndentCommand creates the indent command.
func newIndentCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indent <id> <parent-id>",
		Short: "Make a task a subtask of another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			child, err := resolveTask(st, args[0])
			if err != nil {
				return err
			}
			parent, err := resolveTask(st, args[1])
			if err != nil {
				return err
			}
			if !st.IndentTask(child.ID, parent.ID) {
				return fmt.Errorf("cannot indent %s under %s", shortID(child.ID), shortID(parent.ID))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved %s under %s\n", shortID(child.ID), shortID(parent.ID))
			return st.Flush()
		},
	}
	return cmd
}

// newPromoteCommand creates the promote command.
func newPromoteCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote <id>",
		Short: "Make a subtask a top-level task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			t, err := resolveTask(st, args[0])
			if err != nil {
				return err
			}
			if !st.PromoteSubtask(t.ID) {
				return fmt.Errorf("task %s is not a subtask", shortID(t.ID))
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Promoted %s to top level\n", shortID(t.ID))
			return st.Flush()
		},
	}
	return cmd
}

// newNoteCommand creates the note command.
func newNoteCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Attach a timestamped note to a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			t, err := resolveTask(st, args[0])
			if err != nil {
				return err
			}
			if err := st.AddNote(t.ID, args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Noted on %s\n", shortID(t.ID))
			return st.Flush()
		},
	}
	return cmd
}

// newEstimateCommand creates the estimate command.
func newEstimateCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate <id> <minutes>",
		Short: "Set the task estimate in minutes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			t, err := resolveTask(st, args[0])
			if err != nil {
				return err
			}
			minutes, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid minutes %q", args[1])
			}
			if err := st.SetEstimate(t.ID, minutes); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Estimated %s at %dm\n", shortID(t.ID), minutes)
			return st.Flush()
		},
	}
	return cmd
}

// newLogCommand creates the log command for recording worked time.
func newLogCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <id> <minutes>",
		Short: "Log worked minutes against a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			t, err := resolveTask(st, args[0])
			if err != nil {
				return err
			}
			minutes, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid minutes %q", args[1])
			}
			if err := st.LogTime(t.ID, minutes); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged %dm on %s\n", minutes, shortID(t.ID))
			return st.Flush()
		},
	}
	return cmd
}

// newTimerCommand creates the timer command group.
func newTimerCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "timer",
		Short: "Track work time with a running timer",
	}

	start := &cobra.Command{
		Use:   "start <id>",
		Short: "Start timing a task (stops any running timer)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			t, err := resolveTask(st, args[0])
			if err != nil {
				return err
			}
			if err := st.StartTimer(t.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Timer started on %s\n", shortID(t.ID))
			return st.Flush()
		},
	}

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running timer and log the elapsed minutes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			minutes := st.StopTimer()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Logged %dm\n", minutes)
			return st.Flush()
		},
	}

	cmd.AddCommand(start, stop)
	return cmd
}

// newUndoCommand creates the undo command.
func newUndoCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recent change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			if !st.Undo() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to undo")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Undone")
			return st.Flush()
		},
	}
	return cmd
}

// newRedoCommand creates the redo command.
func newRedoCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redo",
		Short: "Re-apply the most recently undone change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			if !st.Redo() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Nothing to redo")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Redone")
			return st.Flush()
		},
	}
	return cmd
}
