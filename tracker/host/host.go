// Package host assembles the procedures of a tracker host and the workspace they operate on.
package host

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/scan"
	"github.com/swdunlop/tracker-go/tracker/store"
	"github.com/swdunlop/tracker-go/tracker/todo"
	"github.com/swdunlop/tracker-go/tracker/wrpc"
)

// ErrNoWorkspace is returned by procedures that need a workspace directory when the host has none.
var ErrNoWorkspace = errors.New(`No workspace folder open`)

// A Workspace is everything a procedure may touch: the workspace directory, its state, state shared between
// workspaces, and the services built on them.
type Workspace struct {
	Root    string        // empty if the host has no workspace directory
	State   store.Memento // workspace state
	Global  store.Memento // state shared by every workspace
	Board   *todo.Board
	Scanner *scan.Scanner // nil without a Root
	Hub     *wrpc.Hub
}

// New returns a workspace for the directory root, keeping its state in state and global.  Scan options are applied
// to the workspace scanner.
func New(root string, state, global store.Memento, options ...scan.Option) (*Workspace, error) {
	ws := &Workspace{
		Root:   root,
		State:  state,
		Global: global,
		Board:  todo.NewBoard(state),
		Hub:    new(wrpc.Hub),
	}
	if root != `` {
		var err error
		ws.Scanner, err = scan.New(root, state, append(options, scan.Notify(ws.Hub))...)
		if err != nil {
			return nil, err
		}
	}
	return ws, nil
}

// Dispatcher returns a dispatcher serving every procedure against this workspace.  Notifications published to the
// workspace hub reach every connection it serves.
func (ws *Workspace) Dispatcher(options ...wrpc.Option) *wrpc.Dispatcher {
	options = append([]wrpc.Option{
		wrpc.Use(Log()),
		wrpc.Use(Inject(ws)),
		wrpc.Broadcast(ws.Hub),
	}, options...)
	return wrpc.NewDispatcher(Table(), options...)
}

// With returns a context carrying a workspace.
func With(ctx context.Context, ws *Workspace) context.Context {
	return context.WithValue(ctx, ctxKey{}, ws)
}

// From returns the workspace carried by a context, or nil.
func From(ctx context.Context) *Workspace {
	ws, _ := ctx.Value(ctxKey{}).(*Workspace)
	return ws
}

type ctxKey struct{}

// Inject is middleware that makes a workspace available to procedures through From.
func Inject(ws *Workspace) func(wrpc.Handler) wrpc.Handler {
	return func(next wrpc.Handler) wrpc.Handler {
		return func(ctx *wrpc.Scope) {
			ctx.Context = With(ctx.Context, ws)
			next(ctx)
		}
	}
}

// Log is middleware that adds the request id and path to the request logger, traces the input of every request, and
// logs how long it took at debug level.
func Log() func(wrpc.Handler) wrpc.Handler {
	return func(next wrpc.Handler) wrpc.Handler {
		return func(ctx *wrpc.Scope) {
			ctx.Context = hog.With(ctx.Context, func(z zerolog.Context) zerolog.Context {
				return z.Str(`id`, ctx.ID).Str(`path`, ctx.Path)
			})
			evt := hog.From(ctx).Trace()
			if evt.Enabled() && len(ctx.Input) > 0 {
				evt.RawJSON(`input`, ctx.Input).Msg(`request`)
			}
			start := time.Now()
			next(ctx)
			hog.From(ctx).Debug().Dur(`elapsed`, time.Since(start)).Msg(`handled`)
		}
	}
}
