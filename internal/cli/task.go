package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okui/taskdeck/internal/app"
	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/store"
)

// newAddCommand creates the add command for creating tasks.
func newAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Description string
		Project     string
		Priority    string
		Due         string
		Parent      string
		Recur       string
		RecurUntil  string
		Tags        []string
		RecurEvery  int
		Estimate    int
	}

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a new task",
		Long: `Create a new task with status 'todo'.

Examples:
  # Create a top-level task
  taskdeck add "Write quarterly report"

  # Create a subtask with a due date
  taskdeck add "Draft outline" --parent 3f2a --due 2026-09-01

  # Create a weekly recurring task
  taskdeck add "Team retro" --recur weekly --due 2026-09-07`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}

			in := store.TaskInput{
				Title:       args[0],
				Description: opts.Description,
				Project:     opts.Project,
				Tags:        opts.Tags,
				EstimateMin: opts.Estimate,
			}
			if opts.Priority != "" {
				in.Priority = domain.Priority(opts.Priority)
			}
			if opts.Due != "" {
				due, err := parseDate(opts.Due)
				if err != nil {
					return err
				}
				in.DueDate = &due
			}
			if opts.Recur != "" {
				rule, err := parseRecurrence(opts.Recur, opts.RecurEvery, opts.RecurUntil)
				if err != nil {
					return err
				}
				in.Recurrence = rule
			}

			var t *domain.Task
			if opts.Parent != "" {
				parent, err := resolveTask(st, opts.Parent)
				if err != nil {
					return err
				}
				t, err = st.AddSubtask(parent.ID, in)
				if err != nil {
					return err
				}
			} else {
				t, err = st.AddTask(in)
				if err != nil {
					return err
				}
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %s\n", shortID(t.ID))
			return st.Flush()
		},
	}

	cmd.Flags().StringVar(&opts.Description, "desc", "", "Task description")
	cmd.Flags().StringVar(&opts.Project, "project", "", "Project name")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "Priority (none|low|medium|high|urgent)")
	cmd.Flags().StringVar(&opts.Due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "Parent task ID (creates a subtask)")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "Tags (can specify multiple)")
	cmd.Flags().IntVar(&opts.Estimate, "estimate", 0, "Estimate in minutes")
	cmd.Flags().StringVar(&opts.Recur, "recur", "", "Recurrence frequency (daily|weekly|monthly|yearly)")
	cmd.Flags().IntVar(&opts.RecurEvery, "every", 1, "Recurrence interval")
	cmd.Flags().StringVar(&opts.RecurUntil, "until", "", "Last date the recurrence applies")

	return cmd
}

// newListCommand creates the list command.
func newListCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Status   string
		Priority string
		Project  string
		Search   string
		Sort     string
		Tags     []string
		Tree     bool
		All      bool
	}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Long: `List tasks, optionally filtered and sorted.

Examples:
  taskdeck list --status todo --sort due
  taskdeck list --project work --tag urgent
  taskdeck list --tree`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}

			filter := domain.TaskFilter{
				Project:         opts.Project,
				Search:          opts.Search,
				Tags:            opts.Tags,
				IncludeArchived: opts.All,
			}
			if opts.Status != "" {
				status := domain.Status(opts.Status)
				if !status.Valid() {
					return domain.ErrInvalidStatus
				}
				filter.Status = &status
			}
			if opts.Priority != "" {
				priority := domain.Priority(opts.Priority)
				if !priority.Valid() {
					return domain.ErrInvalidPriority
				}
				filter.Priority = &priority
			}
			sort := domain.SortField(opts.Sort)
			if !sort.Valid() {
				return fmt.Errorf("invalid sort field %q (manual|priority|due|created|title)", opts.Sort)
			}

			if opts.Tree {
				return printTree(cmd, st, filter, sort)
			}
			return printList(cmd, st, filter, sort)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "Filter by priority")
	cmd.Flags().StringVar(&opts.Project, "project", "", "Filter by project")
	cmd.Flags().StringVar(&opts.Search, "search", "", "Title/description substring")
	cmd.Flags().StringArrayVar(&opts.Tags, "tag", nil, "Filter by tag (AND, can specify multiple)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "manual", "Sort field (manual|priority|due|created|title)")
	cmd.Flags().BoolVar(&opts.Tree, "tree", false, "Show the task hierarchy")
	cmd.Flags().BoolVar(&opts.All, "all", false, "Include archived tasks")

	return cmd
}

func printList(cmd *cobra.Command, st *store.Store, filter domain.TaskFilter, sort domain.SortField) error {
	tasks := st.GetFiltered(filter, sort)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tPRI\tPROJECT\tDUE\tTITLE")
	for _, t := range tasks {
		project := t.Project
		if project == "" {
			project = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), t.Status.Display(), t.Priority, project, formatDue(t.DueDate), taskLabel(st, t))
	}
	return w.Flush()
}

func printTree(cmd *cobra.Command, st *store.Store, filter domain.TaskFilter, sort domain.SortField) error {
	rows := st.GetFilteredTree(filter, sort)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tDUE\tTITLE")
	for _, row := range rows {
		branch := ""
		if row.Depth > 0 {
			marker := "├─ "
			if row.IsLast {
				marker = "└─ "
			}
			branch = strings.Repeat("   ", row.Depth-1) + marker
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\n",
			shortID(row.Task.ID), row.Task.Status.Display(), formatDue(row.Task.DueDate),
			branch, taskLabel(st, row.Task))
	}
	return w.Flush()
}

// taskLabel renders the title with subtask progress and a blocked marker.
func taskLabel(st *store.Store, t *domain.Task) string {
	label := t.Title
	if done, total := st.GetProgress(t.ID); total > 0 {
		label += fmt.Sprintf(" [%d/%d]", done, total)
	}
	if st.IsBlocked(t.ID) {
		label += " (blocked)"
	}
	return label
}

// newShowCommand creates the show command.
func newShowCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show task details",
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

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "ID:       %s\n", t.ID)
			_, _ = fmt.Fprintf(out, "Title:    %s\n", t.Title)
			_, _ = fmt.Fprintf(out, "Status:   %s\n", t.Status.Display())
			_, _ = fmt.Fprintf(out, "Priority: %s\n", t.Priority)
			if t.Project != "" {
				_, _ = fmt.Fprintf(out, "Project:  %s\n", t.Project)
			}
			if t.Description != "" {
				_, _ = fmt.Fprintf(out, "Desc:     %s\n", t.Description)
			}
			if len(t.Tags) > 0 {
				_, _ = fmt.Fprintf(out, "Tags:     %s\n", strings.Join(t.Tags, ", "))
			}
			if t.DueDate != nil {
				_, _ = fmt.Fprintf(out, "Due:      %s\n", formatDue(t.DueDate))
			}
			if t.Recurrence != nil {
				_, _ = fmt.Fprintf(out, "Repeats:  every %d %s\n", max(t.Recurrence.Interval, 1), t.Recurrence.Frequency)
			}
			if t.ParentID != nil {
				_, _ = fmt.Fprintf(out, "Parent:   %s\n", shortID(*t.ParentID))
			}
			if done, total := st.GetProgress(t.ID); total > 0 {
				_, _ = fmt.Fprintf(out, "Subtasks: %d/%d done\n", done, total)
			}
			if t.EstimateMin > 0 || t.ActualMin > 0 {
				_, _ = fmt.Fprintf(out, "Time:     %dm logged / %dm estimated\n", t.ActualMin, t.EstimateMin)
			}
			if len(t.BlockedBy) > 0 {
				short := make([]string, len(t.BlockedBy))
				for i, b := range t.BlockedBy {
					short[i] = shortID(b)
				}
				_, _ = fmt.Fprintf(out, "Blocked:  by %s\n", strings.Join(short, ", "))
			}
			if t.ExternalID != "" {
				_, _ = fmt.Fprintf(out, "Synced:   %s (%s)\n", t.ExternalID, t.ExternalSource)
			}
			_, _ = fmt.Fprintf(out, "Created:  %s\n", t.CreatedAt.Format("2006-01-02 15:04"))
			_, _ = fmt.Fprintf(out, "Updated:  %s\n", t.UpdatedAt.Format("2006-01-02 15:04"))
			for _, n := range t.Notes {
				_, _ = fmt.Fprintf(out, "Note [%s]: %s\n", n.Time.Format("2006-01-02 15:04"), n.Text)
			}
			return nil
		},
	}
	return cmd
}

// newEditCommand creates the edit command.
func newEditCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Title      string
		Desc       string
		Project    string
		Status     string
		Priority   string
		Due        string
		Recur      string
		RecurUntil string
		AddTags    []string
		RemoveTags []string
		RecurEvery int
		ClearDue   bool
		ClearRecur bool
	}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update task fields",
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

			patch := store.TaskPatch{
				AddTags:         opts.AddTags,
				RemoveTags:      opts.RemoveTags,
				ClearDueDate:    opts.ClearDue,
				ClearRecurrence: opts.ClearRecur,
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &opts.Title
			}
			if flags.Changed("desc") {
				patch.Description = &opts.Desc
			}
			if flags.Changed("project") {
				patch.Project = &opts.Project
			}
			if flags.Changed("status") {
				status := domain.Status(opts.Status)
				patch.Status = &status
			}
			if flags.Changed("priority") {
				priority := domain.Priority(opts.Priority)
				patch.Priority = &priority
			}
			if opts.Due != "" {
				due, err := parseDate(opts.Due)
				if err != nil {
					return err
				}
				patch.DueDate = &due
			}
			if opts.Recur != "" {
				rule, err := parseRecurrence(opts.Recur, opts.RecurEvery, opts.RecurUntil)
				if err != nil {
					return err
				}
				patch.Recurrence = rule
			}

			updated, err := st.UpdateTask(t.ID, patch)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s\n", shortID(updated.ID))
			return st.Flush()
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "New title")
	cmd.Flags().StringVar(&opts.Desc, "desc", "", "New description")
	cmd.Flags().StringVar(&opts.Project, "project", "", "New project")
	cmd.Flags().StringVar(&opts.Status, "status", "", "New status (todo|in_progress|done|archived)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "New priority")
	cmd.Flags().StringVar(&opts.Due, "due", "", "New due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.ClearDue, "clear-due", false, "Remove the due date")
	cmd.Flags().StringVar(&opts.Recur, "recur", "", "New recurrence frequency")
	cmd.Flags().IntVar(&opts.RecurEvery, "every", 1, "Recurrence interval")
	cmd.Flags().StringVar(&opts.RecurUntil, "until", "", "Last date the recurrence applies")
	cmd.Flags().BoolVar(&opts.ClearRecur, "clear-recur", false, "Remove the recurrence rule")
	cmd.Flags().StringArrayVar(&opts.AddTags, "tag", nil, "Add a tag")
	cmd.Flags().StringArrayVar(&opts.RemoveTags, "untag", nil, "Remove a tag")

	return cmd
}
