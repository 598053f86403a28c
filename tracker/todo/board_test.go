package todo

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/swdunlop/tracker-go/tracker/schema"
	"github.com/swdunlop/tracker-go/tracker/store"
)

const missingID = `00000000-0000-4000-8000-000000000000`

func newBoard(t *testing.T) (*Board, store.Memento) {
	t.Helper()
	m := store.Memory()
	b := NewBoard(m)
	b.Now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return b, m
}

func ptr[T any](v T) *T { return &v }

func mustStore(t *testing.T, b *Board, draft Draft) Todo {
	t.Helper()
	todo, err := b.Store(context.Background(), draft)
	if err != nil {
		t.Fatalf("store %q: %v", draft.Title, err)
	}
	return todo
}

func ids(todos []Todo) []string {
	list := make([]string, len(todos))
	for i, t := range todos {
		list[i] = t.ID
	}
	return list
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	b, _ := newBoard(t)

	a := mustStore(t, b, Draft{Title: `a`, Status: StatusTodo, Priority: PriorityLow})
	if a.CreatedAt != `2024-05-01T09:30:00.000Z` {
		t.Fatalf("unexpected creation time %q", a.CreatedAt)
	}
	c := mustStore(t, b, Draft{Title: `c`, Status: StatusDone, Priority: PriorityHigh, Deadline: ptr(`2024-05-03T12:00:00Z`)})
	d := mustStore(t, b, Draft{Title: `d`, Status: StatusTodo, Priority: PriorityMedium, Deadline: ptr(`2024-05-03T08:00:00Z`)})

	order, ok, err := b.KanbanOrder(ctx)
	if err != nil || !ok {
		t.Fatalf("expected a kanban order, got %v %v", ok, err)
	}
	want := KanbanOrder{Todo: []string{a.ID, d.ID}, InProgress: []string{}, Done: []string{c.ID}}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected %+v, got %+v", want, order)
	}
	cal, ok, err := b.CalendarOrder(ctx)
	if err != nil || !ok {
		t.Fatalf("expected a calendar order, got %v %v", ok, err)
	}
	if !reflect.DeepEqual(cal, CalendarOrder{`2024-05-03`: {c.ID, d.ID}}) {
		t.Fatalf("unexpected calendar order %v", cal)
	}

	for _, draft := range []Draft{
		{Title: `x`, Status: `later`, Priority: PriorityLow},
		{Title: `x`, Status: StatusTodo, Priority: `urgent`},
		{Title: `x`, Status: StatusTodo, Priority: PriorityLow, Deadline: ptr(`tomorrow`)},
	} {
		_, err := b.Store(ctx, draft)
		if !errors.Is(err, schema.ErrInvalid) {
			t.Errorf("expected %+v to be invalid, got %v", draft, err)
		}
	}
	todos, err := b.Todos(ctx)
	if err != nil || len(todos) != 3 {
		t.Fatalf("expected 3 todos, got %d %v", len(todos), err)
	}
}

func TestKanbanColumns(t *testing.T) {
	ctx := context.Background()
	b, m := newBoard(t)
	a := mustStore(t, b, Draft{Title: `a`, Status: StatusTodo, Priority: PriorityLow})
	p := mustStore(t, b, Draft{Title: `p`, Status: StatusInProgress, Priority: PriorityLow})
	c := mustStore(t, b, Draft{Title: `c`, Status: StatusTodo, Priority: PriorityLow})

	t.Run(`stored order`, func(t *testing.T) {
		_, err := b.SaveKanbanOrder(ctx, KanbanOrder{Todo: []string{c.ID, missingID, a.ID}, InProgress: []string{p.ID}, Done: []string{}})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		cols, err := b.KanbanColumns(ctx)
		if err != nil {
			t.Fatalf("columns: %v", err)
		}
		if !reflect.DeepEqual(ids(cols.Todo), []string{c.ID, a.ID}) || !reflect.DeepEqual(ids(cols.InProgress), []string{p.ID}) || len(cols.Done) != 0 {
			t.Fatalf("unexpected columns %+v", cols)
		}
	})

	t.Run(`change status`, func(t *testing.T) {
		moved, err := b.ChangeStatus(ctx, a.ID, StatusDone)
		if err != nil || moved == nil || moved.Status != StatusDone {
			t.Fatalf("change status: %+v %v", moved, err)
		}
		order, _, _ := b.KanbanOrder(ctx)
		if !reflect.DeepEqual(order.Todo, []string{c.ID, missingID}) || !reflect.DeepEqual(order.Done, []string{a.ID}) {
			t.Fatalf("unexpected order %+v", order)
		}
		_, err = b.ChangeStatus(ctx, missingID, StatusDone)
		if !errors.Is(err, ErrNotFound) || err.Error() != `Todo not found` {
			t.Fatalf("expected Todo not found, got %v", err)
		}
	})

	t.Run(`deleted todos are skipped`, func(t *testing.T) {
		ok, err := b.Delete(ctx, c.ID)
		if err != nil || !ok {
			t.Fatalf("delete: %v %v", ok, err)
		}
		cols, err := b.KanbanColumns(ctx)
		if err != nil {
			t.Fatalf("columns: %v", err)
		}
		if len(cols.Todo) != 0 || len(cols.Done) != 1 {
			t.Fatalf("unexpected columns %+v", cols)
		}
	})

	t.Run(`no stored order`, func(t *testing.T) {
		if err := store.Delete(ctx, m, KanbanOrderKey); err != nil {
			t.Fatal(err)
		}
		cols, err := b.KanbanColumns(ctx)
		if err != nil {
			t.Fatalf("columns: %v", err)
		}
		if len(cols.Todo) != 0 || !reflect.DeepEqual(ids(cols.InProgress), []string{p.ID}) || !reflect.DeepEqual(ids(cols.Done), []string{a.ID}) {
			t.Fatalf("expected todos grouped by status, got %+v", cols)
		}
	})

	t.Run(`invalid stored order`, func(t *testing.T) {
		if err := m.Update(ctx, KanbanOrderKey, []byte(`{"todo":[]}`)); err != nil {
			t.Fatal(err)
		}
		if _, ok, err := b.KanbanOrder(ctx); ok || err != nil {
			t.Fatalf("expected an incomplete order to be ignored, got %v %v", ok, err)
		}
		_, err := b.SaveKanbanOrder(ctx, KanbanOrder{Todo: []string{}})
		if !errors.Is(err, schema.ErrInvalid) {
			t.Fatalf("expected an incomplete order to be rejected, got %v", err)
		}
	})
}

func TestCalendarColumns(t *testing.T) {
	ctx := context.Background()
	b, _ := newBoard(t)
	week := []string{`2024-05-01`, `2024-05-02`}

	cols, err := b.CalendarColumns(ctx, week)
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if !reflect.DeepEqual(cols, map[string][]Todo{`2024-05-01`: {}, `2024-05-02`: {}}) {
		t.Fatalf("expected empty days, got %v", cols)
	}

	a := mustStore(t, b, Draft{Title: `a`, Status: StatusTodo, Priority: PriorityLow, Deadline: ptr(`2024-05-01T10:00:00Z`)})
	n := mustStore(t, b, Draft{Title: `n`, Status: StatusTodo, Priority: PriorityLow})

	moved, err := b.ChangeDeadline(ctx, n.ID, ptr(`2024-05-02T10:00:00Z`))
	if err != nil || moved == nil || *moved.Deadline != `2024-05-02T10:00:00Z` {
		t.Fatalf("change deadline: %+v %v", moved, err)
	}
	if _, err := b.ChangeDeadline(ctx, a.ID, ptr(`2024-05-02T09:00:00Z`)); err != nil {
		t.Fatalf("change deadline: %v", err)
	}
	cols, err = b.CalendarColumns(ctx, week)
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if len(cols[`2024-05-01`]) != 0 || !reflect.DeepEqual(ids(cols[`2024-05-02`]), []string{n.ID, a.ID}) {
		t.Fatalf("unexpected columns %v", cols)
	}

	cleared, err := b.ChangeDeadline(ctx, n.ID, nil)
	if err != nil || cleared == nil || cleared.Deadline != nil {
		t.Fatalf("clear deadline: %+v %v", cleared, err)
	}
	order, _, _ := b.CalendarOrder(ctx)
	if !reflect.DeepEqual(order[`2024-05-02`], []string{a.ID}) {
		t.Fatalf("unexpected order %v", order)
	}

	if _, err := b.ChangeDeadline(ctx, missingID, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = b.SaveCalendarOrder(ctx, CalendarOrder{`2024-05-01`: nil})
	if !errors.Is(err, schema.ErrInvalid) {
		t.Fatalf("expected a null day to be rejected, got %v", err)
	}
}

func TestFieldChanges(t *testing.T) {
	ctx := context.Background()
	b, _ := newBoard(t)
	a := mustStore(t, b, Draft{Title: `a`, Status: StatusTodo, Priority: PriorityLow})

	got, err := b.ChangeTitle(ctx, a.ID, `renamed`)
	if err != nil || got == nil || got.Title != `renamed` {
		t.Fatalf("change title: %+v %v", got, err)
	}
	got, err = b.ChangePriority(ctx, a.ID, PriorityHigh)
	if err != nil || got == nil || got.Priority != PriorityHigh {
		t.Fatalf("change priority: %+v %v", got, err)
	}
	got, err = b.ChangeComments(ctx, a.ID, ptr(`note`))
	if err != nil || got == nil || *got.Comments != `note` {
		t.Fatalf("change comments: %+v %v", got, err)
	}
	if got, err := b.ChangeTitle(ctx, missingID, `x`); got != nil || err != nil {
		t.Fatalf("expected nil for a missing todo, got %+v %v", got, err)
	}
	if _, err := b.ChangePriority(ctx, a.ID, `urgent`); !errors.Is(err, schema.ErrInvalid) {
		t.Fatalf("expected an invalid priority to be rejected, got %v", err)
	}

	stored, ok, err := b.Todo(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("get: %v %v", ok, err)
	}
	if stored.Title != `renamed` || stored.Priority != PriorityHigh || stored.CreatedAt != a.CreatedAt {
		t.Fatalf("unexpected stored todo %+v", stored)
	}

	stored.Title = `edited`
	if _, err := b.Edit(ctx, stored); err != nil {
		t.Fatalf("edit: %v", err)
	}
	ghost := stored
	ghost.ID = missingID
	if _, err := b.Edit(ctx, ghost); err != nil {
		t.Fatalf("edit missing: %v", err)
	}
	todos, _ := b.Todos(ctx)
	if len(todos) != 1 || todos[0].Title != `edited` {
		t.Fatalf("unexpected todos %+v", todos)
	}
}

func TestWorkspaceState(t *testing.T) {
	ctx := context.Background()
	b, _ := newBoard(t)

	state, err := b.WorkspaceState(ctx)
	if err != nil || state.CurrentTab != nil || state.CalendarWeek != nil {
		t.Fatalf("expected an empty state, got %+v %v", state, err)
	}
	if err := b.UpdateWorkspaceState(ctx, WorkspaceState{CurrentTab: ptr(TabCalendar)}); err != nil {
		t.Fatalf("update tab: %v", err)
	}
	if err := b.UpdateWorkspaceState(ctx, WorkspaceState{CalendarWeek: ptr(`2024-04-29T00:00:00Z`)}); err != nil {
		t.Fatalf("update week: %v", err)
	}
	state, err = b.WorkspaceState(ctx)
	if err != nil || state.CurrentTab == nil || *state.CurrentTab != TabCalendar || state.CalendarWeek == nil {
		t.Fatalf("expected merged state, got %+v %v", state, err)
	}
	if err := b.UpdateWorkspaceState(ctx, WorkspaceState{CurrentTab: ptr(Tab(`list`))}); !errors.Is(err, schema.ErrInvalid) {
		t.Fatalf("expected an invalid tab to be rejected, got %v", err)
	}
}

func TestFirstStoreSavesOrders(t *testing.T) {
	ctx := context.Background()
	b, _ := newBoard(t)

	first := mustStore(t, b, Draft{Title: `first`, Status: StatusInProgress, Priority: PriorityLow, Deadline: ptr(`2024-05-02T10:00:00Z`)})

	order, ok, err := b.KanbanOrder(ctx)
	if err != nil || !ok {
		t.Fatalf("expected the first todo to save a kanban order, got %v %v", ok, err)
	}
	if !reflect.DeepEqual(order.InProgress, []string{first.ID}) {
		t.Fatalf("expected %v in progress, got %+v", first.ID, order)
	}
	days, err := b.CalendarColumns(ctx, []string{`2024-05-01`, `2024-05-02`})
	if err != nil {
		t.Fatal(err)
	}
	if len(days[`2024-05-01`]) != 0 || !reflect.DeepEqual(ids(days[`2024-05-02`]), []string{first.ID}) {
		t.Fatalf("expected the first todo on its deadline, got %v", days)
	}
}
