// Package table stores typed records in a store.Memento.  Each record lives under its own key, "<prefix><id>", and
// the ids of every record are kept in creation order under a separate index key.  Records are validated against
// their schema tags before every write, and records that no longer validate are treated as absent on read.
package table

import (
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/schema"
	"github.com/swdunlop/tracker-go/tracker/store"
)

// A Record is a struct with a string id.  It is implemented by a pointer to the record type.
type Record interface {
	GetID() string
	SetID(id string)
}

// A Table holds records of type T.
type Table[T any, PT interface {
	*T
	Record
}] struct {
	state  store.Memento
	prefix string
	index  string

	// Stamp, if not nil, is applied to new records after their id is assigned, typically to set a creation time.
	Stamp func(PT)

	mu sync.Mutex // guards read-modify-write of the index
}

// New returns a table storing records under prefix, with their ids under index.
func New[T any, PT interface {
	*T
	Record
}](state store.Memento, prefix, index string) *Table[T, PT] {
	return &Table[T, PT]{state: state, prefix: prefix, index: index}
}

// IDs returns the ids in the index, in creation order.
func (tbl *Table[T, PT]) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	_, err := store.GetJSON(ctx, tbl.state, tbl.index, &ids)
	return ids, err
}

// List returns every record that can be read, in creation order.
func (tbl *Table[T, PT]) List(ctx context.Context) ([]T, error) {
	ids, err := tbl.IDs(ctx)
	if err != nil {
		return nil, err
	}
	list := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := tbl.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			list = append(list, rec)
		}
	}
	return list, nil
}

// Get returns the record with the given id, and false if it is missing or does not validate.
func (tbl *Table[T, PT]) Get(ctx context.Context, id string) (T, bool, error) {
	var rec T
	data, ok, err := tbl.state.Get(ctx, tbl.prefix+id)
	if err != nil || !ok {
		return rec, false, err
	}
	err = json.Unmarshal(data, &rec)
	if err == nil {
		err = schema.Check(&rec)
	}
	if err != nil {
		hog.From(ctx).Warn().Err(err).Str(`key`, tbl.prefix+id).Msg(`ignoring invalid record`)
		var zero T
		return zero, false, nil
	}
	return rec, true, nil
}

// Create assigns a new id to rec, stamps it and stores it.
func (tbl *Table[T, PT]) Create(ctx context.Context, rec T) (T, error) {
	PT(&rec).SetID(uuid.NewString())
	if tbl.Stamp != nil {
		tbl.Stamp(PT(&rec))
	}
	err := tbl.put(ctx, PT(&rec))
	if err != nil {
		return rec, err
	}

	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	ids, err := tbl.IDs(ctx)
	if err != nil {
		return rec, err
	}
	return rec, store.PutJSON(ctx, tbl.state, tbl.index, append(ids, PT(&rec).GetID()))
}

// Update replaces a record that already exists.  It returns false without writing anything if there is no record
// with the same id.
func (tbl *Table[T, PT]) Update(ctx context.Context, rec T) (bool, error) {
	_, ok, err := tbl.Get(ctx, PT(&rec).GetID())
	if err != nil || !ok {
		return false, err
	}
	return true, tbl.put(ctx, PT(&rec))
}

// Patch applies fn to the record with the given id and stores the result.  It returns false if there is no record.
func (tbl *Table[T, PT]) Patch(ctx context.Context, id string, fn func(PT)) (T, bool, error) {
	rec, ok, err := tbl.Get(ctx, id)
	if err != nil || !ok {
		return rec, false, err
	}
	fn(PT(&rec))
	PT(&rec).SetID(id)
	return rec, true, tbl.put(ctx, PT(&rec))
}

// Delete removes a record and its id from the index.  It returns false if there was no record.
func (tbl *Table[T, PT]) Delete(ctx context.Context, id string) (bool, error) {
	_, ok, err := tbl.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	err = store.Delete(ctx, tbl.state, tbl.prefix+id)
	if err != nil {
		return false, err
	}

	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	ids, err := tbl.IDs(ctx)
	if err != nil {
		return false, err
	}
	ids = slices.DeleteFunc(ids, func(other string) bool { return other == id })
	return true, store.PutJSON(ctx, tbl.state, tbl.index, ids)
}

// Count returns the number of records that can be read.
func (tbl *Table[T, PT]) Count(ctx context.Context) (int, error) {
	list, err := tbl.List(ctx)
	return len(list), err
}

func (tbl *Table[T, PT]) put(ctx context.Context, rec PT) error {
	err := schema.Check(rec)
	if err != nil {
		return err
	}
	return store.PutJSON(ctx, tbl.state, tbl.prefix+rec.GetID(), rec)
}
