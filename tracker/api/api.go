// Package api declares every procedure served by a tracker host, with its input and output types.  Hosts register
// resolvers under these paths and clients call through them, so a change to either side that disagrees with the
// other fails to compile or, for hosts, fails wrpc.Resolve.
package api

import (
	"strings"

	"github.com/swdunlop/tracker-go/tracker/changes"
	"github.com/swdunlop/tracker-go/tracker/scan"
	"github.com/swdunlop/tracker-go/tracker/todo"
	"github.com/swdunlop/tracker-go/tracker/wrpc"
)

type (
	// Void is the input of procedures that take none.
	Void = wrpc.Void

	// TodoID is the input of deleteTodo, a todo id.
	TodoID = string
)

// ChangeTitle is the input of changeTodoTitle.
type ChangeTitle struct {
	ID       string `json:"id" validate:"required,uuid"`
	NewTitle string `json:"newTitle" validate:"max=1000"`
}

// ChangeStatus is the input of changeTodoStatus.
type ChangeStatus struct {
	ID        string      `json:"id" validate:"required,uuid"`
	NewStatus todo.Status `json:"newStatus" validate:"oneof=todo in-progress done"`
}

// ChangePriority is the input of changeTodoPriority.
type ChangePriority struct {
	ID          string        `json:"id" validate:"required,uuid"`
	NewPriority todo.Priority `json:"newPriority" validate:"oneof=low medium high"`
}

// ChangeDeadline is the input of changeTodoDeadline.  A missing deadline removes it.
type ChangeDeadline struct {
	ID          string  `json:"id" validate:"required,uuid"`
	NewDeadline *string `json:"newDeadline,omitempty" validate:"omitempty,rfc3339"`
}

// ChangeComments is the input of changeTodoComments.  Missing comments are removed.
type ChangeComments struct {
	ID          string  `json:"id" validate:"required,uuid"`
	NewComments *string `json:"newComments,omitempty"`
}

// Week is the input of fetchCalendarTodosByColumns, the days shown by the calendar.
type Week struct {
	WeekDays []string `json:"weekDays" validate:"required"`
}

// CurrentTab is the input of updateCurrentTab.
type CurrentTab struct {
	Tab todo.Tab `json:"tab" validate:"oneof=kanban calendar"`
}

// CalendarWeek is the input of updateCalendarWeek.
type CalendarWeek struct {
	Week string `json:"week" validate:"required,rfc3339"`
}

// Ack is the result of procedures that only report success.
type Ack struct {
	Success bool `json:"success"`
}

// Todo procedures.
var (
	StoreTodo          = wrpc.Path[todo.Draft, todo.Todo](`todo.storeTodo`)
	FetchTodos         = wrpc.Path[Void, []todo.Todo](`todo.fetchTodos`)
	EditTodo           = wrpc.Path[todo.Todo, todo.Todo](`todo.editTodo`)
	DeleteTodo         = wrpc.Path[TodoID, bool](`todo.deleteTodo`)
	ChangeTodoTitle    = wrpc.Path[ChangeTitle, *todo.Todo](`todo.changeTodoTitle`)
	ChangeTodoStatus   = wrpc.Path[ChangeStatus, *todo.Todo](`todo.changeTodoStatus`)
	ChangeTodoPriority = wrpc.Path[ChangePriority, *todo.Todo](`todo.changeTodoPriority`)
	ChangeTodoDeadline = wrpc.Path[ChangeDeadline, *todo.Todo](`todo.changeTodoDeadline`)
	ChangeTodoComments = wrpc.Path[ChangeComments, *todo.Todo](`todo.changeTodoComments`)
)

// Kanban procedures.
var (
	SaveKanbanColumnOrder     = wrpc.Path[todo.KanbanOrder, todo.KanbanOrder](`kanban.saveKanbanColumnOrder`)
	FetchKanbanTodosByColumns = wrpc.Path[Void, todo.KanbanColumns](`kanban.fetchKanbanTodosByColumns`)
)

// Calendar procedures.
var (
	SaveCalendarColumnOrder     = wrpc.Path[todo.CalendarOrder, todo.CalendarOrder](`calendar.saveCalendarColumnOrder`)
	FetchCalendarTodosByColumns = wrpc.Path[Week, map[string][]todo.Todo](`calendar.fetchCalendarTodosByColumns`)
)

// Workspace state procedures.
var (
	GetWorkspaceState  = wrpc.Path[Void, todo.WorkspaceState](`workspaceState.getWorkspaceState`)
	UpdateCurrentTab   = wrpc.Path[CurrentTab, Ack](`workspaceState.updateCurrentTab`)
	UpdateCalendarWeek = wrpc.Path[CalendarWeek, Ack](`workspaceState.updateCalendarWeek`)
)

// Scanner procedures.
var (
	FetchScannedTodos = wrpc.Path[Void, []scan.Item](`scan.fetchScannedTodos`)
	Rescan            = wrpc.Path[Void, int](`scan.rescan`)
)

// ShowChanges reports changes to the workspace since it was last called.
var ShowChanges = wrpc.Path[Void, changes.Report](`showChanges`)

// TodosUpdated is the notification topic published when scanned items change.
const TodosUpdated = scan.Topic

// Flat returns the alias of a procedure registered at the root of the router, without its namespace, like
// "fetchTodos" for "todo.fetchTodos".
func Flat[I, O any](path wrpc.Path[I, O]) wrpc.Path[I, O] {
	s := string(path)
	return wrpc.Path[I, O](s[strings.LastIndexByte(s, '.')+1:])
}

// Aliased lists the procedures that are also registered at the root.
var Aliased = []string{
	StoreTodo.String(), FetchTodos.String(), EditTodo.String(), DeleteTodo.String(),
	ChangeTodoTitle.String(), ChangeTodoStatus.String(), ChangeTodoPriority.String(),
	ChangeTodoDeadline.String(), ChangeTodoComments.String(),
}
