// Package cli provides the command-line interface for taskdeck.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/okui/taskdeck/internal/app"
)

// Command group IDs.
const (
	groupSetup = "setup"
	groupTask  = "task"
	groupSync  = "sync"
)

// NewRootCommand creates the root command for taskdeck.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskdeck",
		Short: "Local-first task manager with external sync",
		Long: `taskdeck is a local-first task manager. All data lives in a single
JSON file under the data directory (~/.taskdeck, or $TASKDECK_DIR);
external trackers are synchronized explicitly with 'taskdeck sync'.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Default: launch the interactive task list
			return launchTUI(c)
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupTask, Title: "Task Management:"},
		&cobra.Group{ID: groupSync, Title: "Sync & Data:"},
	)

	initCmd := newInitCommand(c)
	initCmd.GroupID = groupSetup

	addCmd := newAddCommand(c)
	addCmd.GroupID = groupTask

	listCmd := newListCommand(c)
	listCmd.GroupID = groupTask

	showCmd := newShowCommand(c)
	showCmd.GroupID = groupTask

	editCmd := newEditCommand(c)
	editCmd.GroupID = groupTask

	doneCmd := newDoneCommand(c)
	doneCmd.GroupID = groupTask

	deleteCmd := newDeleteCommand(c)
	deleteCmd.GroupID = groupTask

	indentCmd := newIndentCommand(c)
	indentCmd.GroupID = groupTask

	promoteCmd := newPromoteCommand(c)
	promoteCmd.GroupID = groupTask

	noteCmd := newNoteCommand(c)
	noteCmd.GroupID = groupTask

	estimateCmd := newEstimateCommand(c)
	estimateCmd.GroupID = groupTask

	logCmd := newLogCommand(c)
	logCmd.GroupID = groupTask

	timerCmd := newTimerCommand(c)
	timerCmd.GroupID = groupTask

	undoCmd := newUndoCommand(c)
	undoCmd.GroupID = groupTask

	redoCmd := newRedoCommand(c)
	redoCmd.GroupID = groupTask

	syncCmd := newSyncCommand(c)
	syncCmd.GroupID = groupSync

	statusCmd := newStatusCommand(c)
	statusCmd.GroupID = groupSync

	exportCmd := newExportCommand(c)
	exportCmd.GroupID = groupSync

	importCmd := newImportCommand(c)
	importCmd.GroupID = groupSync

	snapshotCmd := newSnapshotCommand(c)
	snapshotCmd.GroupID = groupSync

	tuiCmd := newTUICommand(c)
	tuiCmd.GroupID = groupTask

	root.AddCommand(
		initCmd,
		addCmd,
		listCmd,
		showCmd,
		editCmd,
		doneCmd,
		deleteCmd,
		indentCmd,
		promoteCmd,
		noteCmd,
		estimateCmd,
		logCmd,
		timerCmd,
		undoCmd,
		redoCmd,
		syncCmd,
		statusCmd,
		exportCmd,
		importCmd,
		snapshotCmd,
		tuiCmd,
	)

	return root
}
