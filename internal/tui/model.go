// Package tui implements the interactive task list. It is a thin view over
// the store; all behavior lives in the store itself.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/okui/taskdeck/internal/domain"
	"github.com/okui/taskdeck/internal/store"
	"github.com/okui/taskdeck/internal/syncstate"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	doneStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	statusStyle = lipgloss.NewStyle().Faint(true)
)

// item adapts a task to the bubbles list interface.
type item struct {
	task    *domain.Task
	blocked bool
	done    int
	total   int
}

func (i item) Title() string {
	title := i.task.Title
	if i.total > 0 {
		title += fmt.Sprintf(" [%d/%d]", i.done, i.total)
	}
	if i.task.IsDone() {
		return doneStyle.Render(title)
	}
	if i.blocked {
		title += " (blocked)"
	}
	return title
}

func (i item) Description() string {
	desc := i.task.Status.Display()
	if i.task.DueDate != nil {
		desc += " · due " + i.task.DueDate.Format("2006-01-02")
	}
	if i.task.Priority != domain.PriorityNone {
		desc += " · " + string(i.task.Priority)
	}
	return desc
}

func (i item) FilterValue() string {
	return i.task.Title
}

// Model is the interactive task list.
type Model struct {
	store  *store.Store
	state  *syncstate.Manager
	status string
	list   list.Model
}

// New creates the task list model. The sync state receives deletion markers
// so tasks deleted here still propagate to the remote side.
func New(st *store.Store, state *syncstate.Manager) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "taskdeck"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)

	m := Model{store: st, state: state, list: l}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// reload rebuilds the list items from the store.
func (m *Model) reload() {
	tasks := m.store.GetFiltered(domain.TaskFilter{}, domain.SortManual)
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		done, total := m.store.GetProgress(t.ID)
		items = append(items, item{
			task:    t,
			blocked: m.store.IsBlocked(t.ID),
			done:    done,
			total:   total,
		})
	}
	m.list.SetItems(items)
}

// selected returns the task under the cursor, or nil.
func (m *Model) selected() *domain.Task {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return nil
	}
	return it.task
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-1)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			_ = m.store.Flush()
			return m, tea.Quit

		case "enter", " ":
			if t := m.selected(); t != nil {
				if t.IsDone() {
					if _, err := m.store.MoveToStatus(t.ID, domain.StatusTodo); err == nil {
						m.status = "reopened: " + t.Title
					}
				} else if next, err := m.store.CompleteRecurring(t.ID); err == nil {
					m.status = "done: " + t.Title
					if next != nil {
						m.status += " (next occurrence created)"
					}
				}
				m.reload()
			}

		case "d":
			if t := m.selected(); t != nil {
				if syncstate.DeleteTaskTree(m.store, m.state, t.ID) {
					_ = m.state.Save()
					m.status = "deleted: " + t.Title
				}
				m.reload()
			}

		case "u":
			if m.store.Undo() {
				m.status = "undone"
			} else {
				m.status = "nothing to undo"
			}
			m.reload()

		case "r":
			if m.store.Redo() {
				m.status = "redone"
			} else {
				m.status = "nothing to redo"
			}
			m.reload()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	footer := statusStyle.Render("enter: toggle · d: delete · u: undo · r: redo · q: quit")
	if m.status != "" {
		footer = statusStyle.Render(m.status)
	}
	return m.list.View() + "\n" + footer
}
