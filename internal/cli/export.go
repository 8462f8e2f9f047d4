package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okui/taskdeck/internal/app"
	"github.com/okui/taskdeck/internal/domain"
)

// newExportCommand creates the export command.
func newExportCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export all tasks as YAML or JSON",
		Long: `Write every task to a file, or to stdout when no file is given.

Examples:
  taskdeck export backup.yaml
  taskdeck export --format json backup.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.Store()
			if err != nil {
				return err
			}
			tasks := st.All()

			var content []byte
			switch format {
			case "yaml":
				content, err = yaml.Marshal(tasks)
			case "json":
				content, err = json.MarshalIndent(tasks, "", "  ")
			default:
				return fmt.Errorf("invalid format %q (yaml|json)", format)
			}
			if err != nil {
				return fmt.Errorf("encode tasks: %w", err)
			}

			if len(args) == 0 {
				_, err = cmd.OutOrStdout().Write(content)
				return err
			}
			if err := os.WriteFile(args[0], content, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d task(s) to %s\n", len(tasks), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format (yaml|json)")
	return cmd
}

// newImportCommand creates the import command.
func newImportCommand(c *app.Container) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import tasks from a YAML or JSON export",
		Long: `Read tasks from an export file and add them to the store. Imported
tasks get fresh IDs; hierarchy within the file is preserved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reader io.Reader
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer func() { _ = f.Close() }()
			reader = f

			content, err := io.ReadAll(reader)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}

			var tasks []*domain.Task
			switch format {
			case "yaml":
				err = yaml.Unmarshal(content, &tasks)
			case "json":
				err = json.Unmarshal(content, &tasks)
			default:
				return fmt.Errorf("invalid format %q (yaml|json)", format)
			}
			if err != nil {
				return fmt.Errorf("decode import file: %w", err)
			}

			st, err := c.Store()
			if err != nil {
				return err
			}

			count, err := importTasks(st, tasks)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s)\n", count)
			return st.Flush()
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Input format (yaml|json)")
	return cmd
}

// importTasks adds the decoded tasks parents-first so hierarchy survives the
// ID rewrite.
func importTasks(st taskAdder, tasks []*domain.Task) (int, error) {
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	newIDs := make(map[string]string, len(tasks))

	var insert func(t *domain.Task) error
	insert = func(t *domain.Task) error {
		if _, done := newIDs[t.ID]; done {
			return nil
		}
		parentNew := ""
		if t.ParentID != nil {
			if parent, ok := byID[*t.ParentID]; ok {
				if err := insert(parent); err != nil {
					return err
				}
				parentNew = newIDs[parent.ID]
			}
		}

		in := taskInputFrom(t)
		var created *domain.Task
		var err error
		if parentNew != "" {
			created, err = st.AddSubtask(parentNew, in)
		} else {
			created, err = st.AddTask(in)
		}
		if err != nil {
			return fmt.Errorf("import %q: %w", t.Title, err)
		}
		newIDs[t.ID] = created.ID

		if t.IsDone() {
			if _, err := st.MoveToStatus(created.ID, domain.StatusDone); err != nil {
				return err
			}
		}
		return nil
	}

	for _, t := range tasks {
		if err := insert(t); err != nil {
			return len(newIDs), err
		}
	}
	return len(newIDs), nil
}
