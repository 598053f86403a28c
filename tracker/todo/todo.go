// Package todo holds the task records behind the kanban and calendar views, along with the column orders and UI
// state that the views persist between sessions.
package todo

import (
	"strings"
)

// A Status is the kanban column of a todo.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every status in column order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// A Priority ranks todos within a column.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// A Todo is a task tracked by the workspace.  Deadline and CreatedAt are RFC 3339 timestamps.
type Todo struct {
	ID        string   `json:"id" validate:"required,uuid"`
	Title     string   `json:"title" validate:"max=1000"`
	Status    Status   `json:"status" validate:"oneof=todo in-progress done"`
	Priority  Priority `json:"priority" validate:"oneof=low medium high"`
	Comments  *string  `json:"comments,omitempty"`
	Deadline  *string  `json:"deadline,omitempty" validate:"omitempty,rfc3339"`
	CreatedAt string   `json:"createdAt" validate:"required,rfc3339"`
}

func (t *Todo) GetID() string   { return t.ID }
func (t *Todo) SetID(id string) { t.ID = id }

// A Draft is a todo that has not been stored yet, and so has no id or creation time.
type Draft struct {
	Title    string   `json:"title" validate:"max=1000"`
	Status   Status   `json:"status" validate:"oneof=todo in-progress done"`
	Priority Priority `json:"priority" validate:"oneof=low medium high"`
	Comments *string  `json:"comments,omitempty"`
	Deadline *string  `json:"deadline,omitempty" validate:"omitempty,rfc3339"`
}

// Todo returns a todo with the fields of the draft.
func (d Draft) Todo() Todo {
	return Todo{Title: d.Title, Status: d.Status, Priority: d.Priority, Comments: d.Comments, Deadline: d.Deadline}
}

// Day returns the calendar day of a timestamp, which is the part before the "T".
func Day(timestamp string) string {
	day, _, _ := strings.Cut(timestamp, `T`)
	return day
}

// KanbanOrder lists todo ids in the order they appear in each kanban column.
type KanbanOrder struct {
	Todo       []string `json:"todo" validate:"required"`
	InProgress []string `json:"in-progress" validate:"required"`
	Done       []string `json:"done" validate:"required"`
}

// Column returns a pointer to the ids in the column for status.
func (o *KanbanOrder) Column(status Status) *[]string {
	switch status {
	case StatusInProgress:
		return &o.InProgress
	case StatusDone:
		return &o.Done
	default:
		return &o.Todo
	}
}

// KanbanColumns holds the todos of each kanban column, in order.
type KanbanColumns struct {
	Todo       []Todo `json:"todo"`
	InProgress []Todo `json:"in-progress"`
	Done       []Todo `json:"done"`
}

// Column returns a pointer to the todos in the column for status.
func (c *KanbanColumns) Column(status Status) *[]Todo {
	switch status {
	case StatusInProgress:
		return &c.InProgress
	case StatusDone:
		return &c.Done
	default:
		return &c.Todo
	}
}

// CalendarOrder lists todo ids in the order they appear on each calendar day, keyed by dates like "2024-05-01".
type CalendarOrder map[string][]string

// CalendarOrderRule validates a CalendarOrder as a whole.
const CalendarOrderRule = `required,dive,required`

// A Tab is one of the views of the board.
type Tab string

const (
	TabKanban   Tab = "kanban"
	TabCalendar Tab = "calendar"
)

// WorkspaceState is the UI state restored when the board is reopened.  Missing fields have never been set.
type WorkspaceState struct {
	CurrentTab   *Tab    `json:"currentTab,omitempty" validate:"omitempty,oneof=kanban calendar"`
	CalendarWeek *string `json:"calendarWeek,omitempty" validate:"omitempty,rfc3339"`
}

// Merge returns the state with every field set in update replaced.
func (s WorkspaceState) Merge(update WorkspaceState) WorkspaceState {
	if update.CurrentTab != nil {
		s.CurrentTab = update.CurrentTab
	}
	if update.CalendarWeek != nil {
		s.CalendarWeek = update.CalendarWeek
	}
	return s
}
