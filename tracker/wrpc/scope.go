package wrpc

import (
	"context"
	"fmt"
	"sync"

	"github.com/swdunlop/tracker-go/tracker/wrpc/internal/protocol"
)

// For creates a new scope for the given request and send function.  Generally this is not necessary but it can be
// useful for testing resolvers without a Dispatcher.
func For(ctx context.Context, req protocol.Request, send func(*protocol.Message) error) *Scope {
	self := &Scope{Context: ctx, Request: req, send: send}
	self.Context = context.WithValue(ctx, ctxKey{}, self)
	return self
}

// From returns the scope of the request from a Go context.  May return nil if there is no RPC scope in the Go context.
func From(ctx context.Context) *Scope {
	scope, _ := ctx.Value(ctxKey{}).(*Scope)
	return scope
}

type ctxKey struct{}

// A Scope describes the scope of an RPC request.  Middleware may replace the Context to inject host capabilities
// before the resolver is called.
type Scope struct {
	context.Context
	protocol.Request

	mu        sync.Mutex
	send      func(*protocol.Message) error
	responded bool
}

// Succ sends a success response to the client.
func (ctx *Scope) Succ(result any) error {
	js, err := encode(result)
	if err != nil {
		_ = ctx.Fail(err.Error())
		return err
	}
	return ctx.respond(protocol.Succ(ctx.ID, js))
}

// Fail sends an error response to the client.  An empty message is replaced with UnknownError.
func (ctx *Scope) Fail(msg string) error {
	if msg == `` {
		msg = UnknownError
	}
	return ctx.respond(protocol.Fail(ctx.ID, msg))
}

// Responded reports whether a response has been sent for the request.
func (ctx *Scope) Responded() bool {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.responded
}

// respond sends the one and only response to the request.
func (ctx *Scope) respond(msg *protocol.Message) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.responded {
		return ErrResponded
	}
	if ctx.send == nil {
		// This happens when the scope was created with a nil send function.  This is a programming error.
		return fmt.Errorf(`response not supported`)
	}
	ctx.responded = true
	err := ctx.send(msg)
	if err != nil {
		return fmt.Errorf(`%w while sending response`, err)
	}
	return nil
}
