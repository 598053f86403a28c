package wrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// A Node is either a *Procedure or a Router.
type Node interface {
	node()
}

// A Router groups procedures and nested routers by name.  Nesting forms dotted paths, so "changeTodoStatus" inside
// the router at "todo" is called as "todo.changeTodoStatus".  Go rejects duplicate constant keys in a map literal,
// which keeps names unique within a router.
type Router map[string]Node

func (Router) node() {}

// A Resolver produces the output of a procedure from validated input.  The scope carries the request and any host
// capabilities injected by middleware.
type Resolver[I, O any] func(ctx *Scope, input I) (O, error)

// A Procedure is a validator and a resolver.  Procedures do nothing until they are called through a Dispatcher and may
// be shared between routers.
type Procedure[I, O any] struct {
	validate Validator[I]
	resolve  Resolver[I, O]
}

// Define returns a procedure that validates input with validate before calling resolve.  If validate is nil, the
// input is decoded as JSON without further checks.
func Define[I, O any](validate Validator[I], resolve Resolver[I, O]) *Procedure[I, O] {
	if validate == nil {
		validate = Decode[I]()
	}
	return &Procedure[I, O]{validate: validate, resolve: resolve}
}

func (*Procedure[I, O]) node() {}

func (p *Procedure[I, O]) call(ctx *Scope) (any, error) {
	in, err := p.validate(ctx.Input)
	if err != nil {
		return nil, err
	}
	return p.resolve(ctx, in)
}

func (p *Procedure[I, O]) types() (reflect.Type, reflect.Type) {
	return reflect.TypeFor[I](), reflect.TypeFor[O]()
}

// procedure is implemented by every *Procedure regardless of its input and output types.
type procedure interface {
	Node
	call(ctx *Scope) (any, error)
	types() (reflect.Type, reflect.Type)
}

// A Table is a composed router, flattened into a lookup table of full paths.
type Table struct {
	procedures map[string]procedure
	routers    map[string]struct{}
}

// Compose flattens a router into a Table.  Names must be non-empty and may not contain dots.
func Compose(router Router) (*Table, error) {
	t := &Table{
		procedures: make(map[string]procedure),
		routers:    make(map[string]struct{}),
	}
	err := t.add(``, router)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// MustCompose is like Compose but panics if the router is malformed.  This is intended for package level tables.
func MustCompose(router Router) *Table {
	t, err := Compose(router)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) add(prefix string, router Router) error {
	for name, node := range router {
		if name == `` || strings.Contains(name, `.`) {
			return fmt.Errorf(`invalid name %q in router %q`, name, prefix)
		}
		path := name
		if prefix != `` {
			path = prefix + `.` + name
		}
		switch node := node.(type) {
		case Router:
			t.routers[path] = struct{}{}
			err := t.add(path, node)
			if err != nil {
				return err
			}
		case procedure:
			if reflect.ValueOf(node).IsNil() {
				return fmt.Errorf(`nil procedure at %q`, path)
			}
			t.procedures[path] = node
		default:
			return fmt.Errorf(`unsupported %T at %q`, node, path)
		}
	}
	return nil
}

// Lookup returns the procedure at a path.  It fails with ErrPathNotFound if nothing is registered there and with
// ErrNotAProcedure if the path names a router.
func (t *Table) Lookup(path string) (Node, error) {
	p, err := t.lookup(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (t *Table) lookup(path string) (procedure, error) {
	if p, ok := t.procedures[path]; ok {
		return p, nil
	}
	if _, ok := t.routers[path]; ok {
		return nil, fmt.Errorf(`%w: %s`, ErrNotAProcedure, path)
	}
	return nil, fmt.Errorf(`%w: %s`, ErrPathNotFound, path)
}

// Paths returns every procedure path in the table, sorted.
func (t *Table) Paths() []string {
	paths := make([]string, 0, len(t.procedures))
	for path := range t.procedures {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Resolve returns the procedure registered for a typed path, failing if the procedure's input or output types differ
// from those of the path.
func Resolve[I, O any](t *Table, path Path[I, O]) (*Procedure[I, O], error) {
	p, err := t.lookup(string(path))
	if err != nil {
		return nil, err
	}
	if typed, ok := p.(*Procedure[I, O]); ok {
		return typed, nil
	}
	in, out := p.types()
	return nil, fmt.Errorf(
		`%s takes %v and returns %v, not %v and %v`,
		path, in, out, reflect.TypeFor[I](), reflect.TypeFor[O](),
	)
}

// invoke calls a procedure, converting a panic into an error so that one bad request cannot take down the host.
func invoke(p procedure, ctx *Scope) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			switch r := r.(type) {
			case error:
				err = fmt.Errorf(`%w while calling %s`, r, ctx.Path)
			default:
				err = errors.New(UnknownError)
			}
		}
	}()
	return p.call(ctx)
}

// encode marshals a resolver result for a success response.
func encode(result any) (json.RawMessage, error) {
	js, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf(`%w while encoding result`, err)
	}
	return js, nil
}
