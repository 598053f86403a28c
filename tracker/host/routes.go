package host

import (
	"sync"

	"github.com/swdunlop/tracker-go/tracker/api"
	"github.com/swdunlop/tracker-go/tracker/changes"
	"github.com/swdunlop/tracker-go/tracker/scan"
	"github.com/swdunlop/tracker-go/tracker/todo"
	"github.com/swdunlop/tracker-go/tracker/wrpc"
)

// Routes returns the router of every procedure in package api.  The todo procedures are also registered at the
// root, where older clients look for them.
func Routes() wrpc.Router {
	todos := wrpc.Router{
		"storeTodo":          storeTodo,
		"fetchTodos":         fetchTodos,
		"editTodo":           editTodo,
		"deleteTodo":         deleteTodo,
		"changeTodoTitle":    changeTodoTitle,
		"changeTodoStatus":   changeTodoStatus,
		"changeTodoPriority": changeTodoPriority,
		"changeTodoDeadline": changeTodoDeadline,
		"changeTodoComments": changeTodoComments,
	}
	root := wrpc.Router{
		"todo": todos,
		"kanban": wrpc.Router{
			"saveKanbanColumnOrder":     saveKanbanColumnOrder,
			"fetchKanbanTodosByColumns": fetchKanbanTodosByColumns,
		},
		"calendar": wrpc.Router{
			"saveCalendarColumnOrder":     saveCalendarColumnOrder,
			"fetchCalendarTodosByColumns": fetchCalendarTodosByColumns,
		},
		"workspaceState": wrpc.Router{
			"getWorkspaceState":  getWorkspaceState,
			"updateCurrentTab":   updateCurrentTab,
			"updateCalendarWeek": updateCalendarWeek,
		},
		"scan": wrpc.Router{
			"fetchScannedTodos": fetchScannedTodos,
			"rescan":            rescan,
		},
		"showChanges": showChanges,
	}
	for name, node := range todos {
		root[name] = node
	}
	return root
}

// Table returns the composed table of Routes.  It is built once.
func Table() *wrpc.Table {
	tableOnce.Do(func() { table = wrpc.MustCompose(Routes()) })
	return table
}

var (
	tableOnce sync.Once
	table     *wrpc.Table
)

var storeTodo = wrpc.Define(wrpc.Struct[todo.Draft](),
	func(ctx *wrpc.Scope, in todo.Draft) (todo.Todo, error) {
		return From(ctx).Board.Store(ctx, in)
	})

var fetchTodos = wrpc.Define(wrpc.None(),
	func(ctx *wrpc.Scope, _ api.Void) ([]todo.Todo, error) {
		return From(ctx).Board.Todos(ctx)
	})

var editTodo = wrpc.Define(wrpc.Struct[todo.Todo](),
	func(ctx *wrpc.Scope, in todo.Todo) (todo.Todo, error) {
		return From(ctx).Board.Edit(ctx, in)
	})

var deleteTodo = wrpc.Define(wrpc.Var[api.TodoID](`required,uuid`),
	func(ctx *wrpc.Scope, id api.TodoID) (bool, error) {
		return From(ctx).Board.Delete(ctx, id)
	})

var changeTodoTitle = wrpc.Define(wrpc.Struct[api.ChangeTitle](),
	func(ctx *wrpc.Scope, in api.ChangeTitle) (*todo.Todo, error) {
		return From(ctx).Board.ChangeTitle(ctx, in.ID, in.NewTitle)
	})

var changeTodoStatus = wrpc.Define(wrpc.Struct[api.ChangeStatus](),
	func(ctx *wrpc.Scope, in api.ChangeStatus) (*todo.Todo, error) {
		return From(ctx).Board.ChangeStatus(ctx, in.ID, in.NewStatus)
	})

var changeTodoPriority = wrpc.Define(wrpc.Struct[api.ChangePriority](),
	func(ctx *wrpc.Scope, in api.ChangePriority) (*todo.Todo, error) {
		return From(ctx).Board.ChangePriority(ctx, in.ID, in.NewPriority)
	})

var changeTodoDeadline = wrpc.Define(wrpc.Struct[api.ChangeDeadline](),
	func(ctx *wrpc.Scope, in api.ChangeDeadline) (*todo.Todo, error) {
		return From(ctx).Board.ChangeDeadline(ctx, in.ID, in.NewDeadline)
	})

var changeTodoComments = wrpc.Define(wrpc.Struct[api.ChangeComments](),
	func(ctx *wrpc.Scope, in api.ChangeComments) (*todo.Todo, error) {
		return From(ctx).Board.ChangeComments(ctx, in.ID, in.NewComments)
	})

var saveKanbanColumnOrder = wrpc.Define(wrpc.Struct[todo.KanbanOrder](),
	func(ctx *wrpc.Scope, in todo.KanbanOrder) (todo.KanbanOrder, error) {
		return From(ctx).Board.SaveKanbanOrder(ctx, in)
	})

var fetchKanbanTodosByColumns = wrpc.Define(wrpc.None(),
	func(ctx *wrpc.Scope, _ api.Void) (todo.KanbanColumns, error) {
		return From(ctx).Board.KanbanColumns(ctx)
	})

var saveCalendarColumnOrder = wrpc.Define(wrpc.Var[todo.CalendarOrder](todo.CalendarOrderRule),
	func(ctx *wrpc.Scope, in todo.CalendarOrder) (todo.CalendarOrder, error) {
		return From(ctx).Board.SaveCalendarOrder(ctx, in)
	})

var fetchCalendarTodosByColumns = wrpc.Define(wrpc.Struct[api.Week](),
	func(ctx *wrpc.Scope, in api.Week) (map[string][]todo.Todo, error) {
		return From(ctx).Board.CalendarColumns(ctx, in.WeekDays)
	})

var getWorkspaceState = wrpc.Define(wrpc.None(),
	func(ctx *wrpc.Scope, _ api.Void) (todo.WorkspaceState, error) {
		return From(ctx).Board.WorkspaceState(ctx)
	})

var updateCurrentTab = wrpc.Define(wrpc.Struct[api.CurrentTab](),
	func(ctx *wrpc.Scope, in api.CurrentTab) (api.Ack, error) {
		err := From(ctx).Board.UpdateWorkspaceState(ctx, todo.WorkspaceState{CurrentTab: &in.Tab})
		return api.Ack{Success: err == nil}, err
	})

var updateCalendarWeek = wrpc.Define(wrpc.Struct[api.CalendarWeek](),
	func(ctx *wrpc.Scope, in api.CalendarWeek) (api.Ack, error) {
		err := From(ctx).Board.UpdateWorkspaceState(ctx, todo.WorkspaceState{CalendarWeek: &in.Week})
		return api.Ack{Success: err == nil}, err
	})

var fetchScannedTodos = wrpc.Define(wrpc.None(),
	func(ctx *wrpc.Scope, _ api.Void) ([]scan.Item, error) {
		ws := From(ctx)
		if ws.Scanner == nil {
			return []scan.Item{}, nil
		}
		items := ws.Scanner.Items()
		if items == nil {
			items = []scan.Item{}
		}
		return items, nil
	})

var rescan = wrpc.Define(wrpc.None(),
	func(ctx *wrpc.Scope, _ api.Void) (int, error) {
		ws := From(ctx)
		if ws.Scanner == nil {
			return 0, ErrNoWorkspace
		}
		return ws.Scanner.ScanAll(ctx)
	})

var showChanges = wrpc.Define(wrpc.None(),
	func(ctx *wrpc.Scope, _ api.Void) (changes.Report, error) {
		ws := From(ctx)
		return changes.Show(ctx, ws.Root, ws.Global)
	})
