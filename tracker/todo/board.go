package todo

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/schema"
	"github.com/swdunlop/tracker-go/tracker/store"
	"github.com/swdunlop/tracker-go/tracker/table"
)

// Keys in workspace state.
const (
	TodoPrefix        = `todo:`
	TodoIndex         = `todoIds`
	KanbanOrderKey    = `kanbanColumnOrder`
	CalendarOrderKey  = `calendarColumnOrder`
	WorkspaceStateKey = `workspaceState`
)

// Timestamp is the layout of CreatedAt, an RFC 3339 timestamp in UTC with milliseconds.
const Timestamp = `2006-01-02T15:04:05.000Z07:00`

// ErrNotFound is returned when a change needs the previous value of a todo that does not exist.  Its text is shown to
// users as is.
var ErrNotFound = errors.New(`Todo not found`)

// A Board keeps todos in workspace state along with the kanban and calendar orders that refer to them.  Column orders
// are only kept in step with todos by the Board; a deleted todo's id may linger in an order and is skipped on fetch.
type Board struct {
	state store.Memento
	todos *table.Table[Todo, *Todo]

	// Now returns the current time, used to stamp new todos.
	Now func() time.Time

	mu sync.Mutex // serializes read-modify-write of column orders
}

// NewBoard returns a board that keeps its records in state.
func NewBoard(state store.Memento) *Board {
	b := &Board{state: state, Now: time.Now}
	b.todos = table.New[Todo](state, TodoPrefix, TodoIndex)
	b.todos.Stamp = func(t *Todo) { t.CreatedAt = b.Now().UTC().Format(Timestamp) }
	return b
}

// Todos returns every todo in creation order.
func (b *Board) Todos(ctx context.Context) ([]Todo, error) {
	return b.todos.List(ctx)
}

// Todo returns the todo with the given id, and false if there is none.
func (b *Board) Todo(ctx context.Context, id string) (Todo, bool, error) {
	return b.todos.Get(ctx, id)
}

// Store creates a todo from a draft and adds it to the end of its kanban column, and to the end of its calendar day
// if it has a deadline.
func (b *Board) Store(ctx context.Context, draft Draft) (Todo, error) {
	t, err := b.todos.Create(ctx, draft.Todo())
	if err != nil {
		return t, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	err = b.addToKanban(ctx, t.ID, t.Status)
	if err == nil && t.Deadline != nil {
		err = b.addToCalendar(ctx, t.ID, *t.Deadline)
	}
	return t, err
}

// Edit replaces a todo, if one with the same id exists.  The replacement is returned either way; column orders are
// left alone.
func (b *Board) Edit(ctx context.Context, t Todo) (Todo, error) {
	_, err := b.todos.Update(ctx, t)
	return t, err
}

// Delete removes a todo, returning false if there was none.
func (b *Board) Delete(ctx context.Context, id string) (bool, error) {
	return b.todos.Delete(ctx, id)
}

// ChangeTitle replaces the title of a todo.  It returns nil if the todo does not exist.
func (b *Board) ChangeTitle(ctx context.Context, id, title string) (*Todo, error) {
	return b.patch(ctx, id, func(t *Todo) { t.Title = title })
}

// ChangePriority replaces the priority of a todo.  It returns nil if the todo does not exist.
func (b *Board) ChangePriority(ctx context.Context, id string, priority Priority) (*Todo, error) {
	return b.patch(ctx, id, func(t *Todo) { t.Priority = priority })
}

// ChangeComments replaces or, given nil, removes the comments of a todo.  It returns nil if the todo does not exist.
func (b *Board) ChangeComments(ctx context.Context, id string, comments *string) (*Todo, error) {
	return b.patch(ctx, id, func(t *Todo) { t.Comments = comments })
}

// ChangeStatus replaces the status of a todo and moves it to the end of its new kanban column.
func (b *Board) ChangeStatus(ctx context.Context, id string, status Status) (*Todo, error) {
	old, ok, err := b.todos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	t, err := b.patch(ctx, id, func(t *Todo) { t.Status = status })
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	order, _, err := b.ensureKanbanOrder(ctx)
	if err != nil {
		return nil, err
	}
	remove(order.Column(old.Status), id)
	appendOnce(order.Column(status), id)
	_, err = b.saveKanbanOrder(ctx, order)
	return t, err
}

// ChangeDeadline replaces or, given nil, removes the deadline of a todo and moves it between calendar days.
func (b *Board) ChangeDeadline(ctx context.Context, id string, deadline *string) (*Todo, error) {
	old, ok, err := b.todos.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	t, err := b.patch(ctx, id, func(t *Todo) { t.Deadline = deadline })
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	order, _, err := b.ensureCalendarOrder(ctx)
	if err != nil {
		return nil, err
	}
	if old.Deadline != nil {
		day := Day(*old.Deadline)
		if ids, ok := order[day]; ok {
			remove(&ids, id)
			order[day] = ids
		}
	}
	if deadline != nil {
		day := Day(*deadline)
		ids := order[day]
		if ids == nil {
			ids = []string{}
		}
		appendOnce(&ids, id)
		order[day] = ids
	}
	_, err = b.saveCalendarOrder(ctx, order)
	return t, err
}

func (b *Board) patch(ctx context.Context, id string, fn func(*Todo)) (*Todo, error) {
	t, ok, err := b.todos.Patch(ctx, id, fn)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

// KanbanOrder returns the stored kanban order, and false if none has been stored.
func (b *Board) KanbanOrder(ctx context.Context) (KanbanOrder, bool, error) {
	var order KanbanOrder
	ok, err := b.load(ctx, KanbanOrderKey, &order, schema.Check)
	return order, ok, err
}

// SaveKanbanOrder replaces the kanban order.
func (b *Board) SaveKanbanOrder(ctx context.Context, order KanbanOrder) (KanbanOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saveKanbanOrder(ctx, order)
}

func (b *Board) saveKanbanOrder(ctx context.Context, order KanbanOrder) (KanbanOrder, error) {
	err := schema.Check(&order)
	if err == nil {
		err = store.PutJSON(ctx, b.state, KanbanOrderKey, order)
	}
	return order, err
}

// KanbanColumns returns the todos in each kanban column.  Without a stored order, todos are grouped by status in
// creation order.
func (b *Board) KanbanColumns(ctx context.Context) (KanbanColumns, error) {
	cols := KanbanColumns{Todo: []Todo{}, InProgress: []Todo{}, Done: []Todo{}}
	todos, err := b.Todos(ctx)
	if err != nil {
		return cols, err
	}
	order, ok, err := b.KanbanOrder(ctx)
	if err != nil {
		return cols, err
	}
	if !ok {
		for _, t := range todos {
			col := cols.Column(t.Status)
			*col = append(*col, t)
		}
		return cols, nil
	}
	byID := index(todos)
	for _, status := range Statuses {
		*cols.Column(status) = resolve(byID, *order.Column(status))
	}
	return cols, nil
}

// CalendarOrder returns the stored calendar order, and false if none has been stored.
func (b *Board) CalendarOrder(ctx context.Context) (CalendarOrder, bool, error) {
	var order CalendarOrder
	ok, err := b.load(ctx, CalendarOrderKey, &order, func(v any) error {
		return schema.CheckVar(*v.(*CalendarOrder), CalendarOrderRule)
	})
	return order, ok, err
}

// SaveCalendarOrder replaces the calendar order.
func (b *Board) SaveCalendarOrder(ctx context.Context, order CalendarOrder) (CalendarOrder, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saveCalendarOrder(ctx, order)
}

func (b *Board) saveCalendarOrder(ctx context.Context, order CalendarOrder) (CalendarOrder, error) {
	err := schema.CheckVar(order, CalendarOrderRule)
	if err == nil {
		err = store.PutJSON(ctx, b.state, CalendarOrderKey, order)
	}
	return order, err
}

// CalendarColumns returns the todos on each of the given days.  Every day is present in the result; without a
// stored order, every day is empty.
func (b *Board) CalendarColumns(ctx context.Context, days []string) (map[string][]Todo, error) {
	cols := make(map[string][]Todo, len(days))
	for _, day := range days {
		cols[day] = []Todo{}
	}
	order, ok, err := b.CalendarOrder(ctx)
	if err != nil || !ok {
		return cols, err
	}
	todos, err := b.Todos(ctx)
	if err != nil {
		return cols, err
	}
	byID := index(todos)
	for _, day := range days {
		cols[day] = resolve(byID, order[day])
	}
	return cols, nil
}

// WorkspaceState returns the stored UI state, or the zero state if none has been stored.
func (b *Board) WorkspaceState(ctx context.Context) (WorkspaceState, error) {
	var state WorkspaceState
	ok, err := b.load(ctx, WorkspaceStateKey, &state, schema.Check)
	if !ok {
		state = WorkspaceState{}
	}
	return state, err
}

// UpdateWorkspaceState merges update into the stored UI state.
func (b *Board) UpdateWorkspaceState(ctx context.Context, update WorkspaceState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, err := b.WorkspaceState(ctx)
	if err != nil {
		return err
	}
	state = state.Merge(update)
	err = schema.Check(&state)
	if err != nil {
		return err
	}
	return store.PutJSON(ctx, b.state, WorkspaceStateKey, state)
}

// ensureKanbanOrder returns the stored kanban order, or one built from the status of every todo.  Built is true if
// nothing was stored, so the caller must save the order even if it does not change it.
func (b *Board) ensureKanbanOrder(ctx context.Context) (order KanbanOrder, built bool, err error) {
	order, ok, err := b.KanbanOrder(ctx)
	if err != nil || ok {
		return order, false, err
	}
	order = KanbanOrder{Todo: []string{}, InProgress: []string{}, Done: []string{}}
	todos, err := b.Todos(ctx)
	if err != nil {
		return order, false, err
	}
	for _, t := range todos {
		col := order.Column(t.Status)
		*col = append(*col, t.ID)
	}
	return order, true, nil
}

// ensureCalendarOrder returns the stored calendar order, or one built from the deadline of every todo.  Built is
// true if nothing was stored.
func (b *Board) ensureCalendarOrder(ctx context.Context) (order CalendarOrder, built bool, err error) {
	order, ok, err := b.CalendarOrder(ctx)
	if err != nil || ok {
		return order, false, err
	}
	order = CalendarOrder{}
	todos, err := b.Todos(ctx)
	if err != nil {
		return order, false, err
	}
	for _, t := range todos {
		if t.Deadline != nil {
			day := Day(*t.Deadline)
			order[day] = append(order[day], t.ID)
		}
	}
	return order, true, nil
}

func (b *Board) addToKanban(ctx context.Context, id string, status Status) error {
	order, built, err := b.ensureKanbanOrder(ctx)
	if err != nil {
		return err
	}
	if !appendOnce(order.Column(status), id) && !built {
		return nil
	}
	_, err = b.saveKanbanOrder(ctx, order)
	return err
}

func (b *Board) addToCalendar(ctx context.Context, id string, deadline string) error {
	order, built, err := b.ensureCalendarOrder(ctx)
	if err != nil {
		return err
	}
	day := Day(deadline)
	ids := order[day]
	if ids == nil {
		ids = []string{}
	}
	if !appendOnce(&ids, id) && !built {
		return nil
	}
	order[day] = ids
	_, err = b.saveCalendarOrder(ctx, order)
	return err
}

// load reads a value from workspace state and checks it.  Values that fail the check are logged and treated as
// absent.
func (b *Board) load(ctx context.Context, key string, v any, check func(any) error) (bool, error) {
	data, ok, err := b.state.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	err = json.Unmarshal(data, v)
	if err == nil {
		err = check(v)
	}
	if err != nil {
		hog.From(ctx).Warn().Err(err).Str(`key`, key).Msg(`ignoring invalid state`)
		return false, nil
	}
	return true, nil
}

func index(todos []Todo) map[string]Todo {
	byID := make(map[string]Todo, len(todos))
	for _, t := range todos {
		byID[t.ID] = t
	}
	return byID
}

// resolve returns the todos for ids, skipping ids that no longer refer to a todo.
func resolve(byID map[string]Todo, ids []string) []Todo {
	todos := make([]Todo, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			todos = append(todos, t)
		}
	}
	return todos
}

func appendOnce(ids *[]string, id string) bool {
	if slices.Contains(*ids, id) {
		return false
	}
	*ids = append(*ids, id)
	return true
}

func remove(ids *[]string, id string) {
	*ids = slices.DeleteFunc(*ids, func(other string) bool { return other == id })
}
