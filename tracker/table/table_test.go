package table

import (
	"context"
	"errors"
	"testing"

	"github.com/swdunlop/tracker-go/tracker/schema"
	"github.com/swdunlop/tracker-go/tracker/store"
)

type note struct {
	ID    string `json:"id" validate:"required,uuid"`
	Text  string `json:"text" validate:"max=5"`
	Stamp string `json:"stamp" validate:"required"`
}

func (n *note) GetID() string   { return n.ID }
func (n *note) SetID(id string) { n.ID = id }

func newNotes(m store.Memento) *Table[note, *note] {
	tbl := New[note](m, `note:`, `noteIds`)
	tbl.Stamp = func(n *note) { n.Stamp = `now` }
	return tbl
}

func TestTable(t *testing.T) {
	ctx := context.Background()
	m := store.Memory()
	notes := newNotes(m)

	a, err := notes.Create(ctx, note{Text: `a`})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID == `` || a.Stamp != `now` {
		t.Fatalf("expected an id and stamp, got %+v", a)
	}
	b, err := notes.Create(ctx, note{ID: `ignored`, Text: `b`})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.ID == `ignored` || b.ID == a.ID {
		t.Fatalf("expected a fresh id, got %q", b.ID)
	}

	_, err = notes.Create(ctx, note{Text: `too long`})
	if !errors.Is(err, schema.ErrInvalid) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if n, _ := notes.Count(ctx); n != 2 {
		t.Fatalf("expected 2 notes after a rejected create, got %d", n)
	}

	list, err := notes.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("expected creation order, got %+v", list)
	}

	t.Run(`update`, func(t *testing.T) {
		ok, err := notes.Update(ctx, note{ID: a.ID, Text: `aa`, Stamp: `x`})
		if err != nil || !ok {
			t.Fatalf("update: %v %v", ok, err)
		}
		got, _, _ := notes.Get(ctx, a.ID)
		if got.Text != `aa` {
			t.Fatalf("update was not stored: %+v", got)
		}
		ok, err = notes.Update(ctx, note{ID: `00000000-0000-0000-0000-000000000000`, Text: `x`, Stamp: `x`})
		if err != nil || ok {
			t.Fatalf("expected update of a missing note to do nothing, got %v %v", ok, err)
		}
		if n, _ := notes.Count(ctx); n != 2 {
			t.Fatalf("update created a record")
		}
	})

	t.Run(`patch`, func(t *testing.T) {
		got, ok, err := notes.Patch(ctx, b.ID, func(n *note) { n.Text = `bb`; n.ID = `hijack` })
		if err != nil || !ok {
			t.Fatalf("patch: %v %v", ok, err)
		}
		if got.ID != b.ID || got.Text != `bb` {
			t.Fatalf("unexpected patch result %+v", got)
		}
		_, ok, err = notes.Patch(ctx, b.ID, func(n *note) { n.Text = `far too long` })
		if !errors.Is(err, schema.ErrInvalid) {
			t.Fatalf("expected a validation error, got %v %v", ok, err)
		}
		got, _, _ = notes.Get(ctx, b.ID)
		if got.Text != `bb` {
			t.Fatalf("an invalid patch was stored: %+v", got)
		}
	})

	t.Run(`invalid records are absent`, func(t *testing.T) {
		err := m.Update(ctx, `note:`+a.ID, []byte(`{"id":"not a uuid"}`))
		if err != nil {
			t.Fatal(err)
		}
		if _, ok, err := notes.Get(ctx, a.ID); ok || err != nil {
			t.Fatalf("expected an invalid record to be absent, got %v %v", ok, err)
		}
		list, err := notes.List(ctx)
		if err != nil || len(list) != 1 || list[0].ID != b.ID {
			t.Fatalf("expected only b, got %+v %v", list, err)
		}
	})

	t.Run(`delete`, func(t *testing.T) {
		ok, err := notes.Delete(ctx, b.ID)
		if err != nil || !ok {
			t.Fatalf("delete: %v %v", ok, err)
		}
		ok, err = notes.Delete(ctx, b.ID)
		if err != nil || ok {
			t.Fatalf("expected a second delete to report false, got %v %v", ok, err)
		}
		ids, _ := notes.IDs(ctx)
		if len(ids) != 1 || ids[0] != a.ID {
			t.Fatalf("unexpected index %v", ids)
		}
	})
}
