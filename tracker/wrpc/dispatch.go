package wrpc

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/wrpc/internal/protocol"
	"nhooyr.io/websocket"
)

// A Handler handles one RPC request and must respond to it exactly once.
type Handler func(*Scope)

// An Option affects the rigging of a Dispatcher.
type Option func(*Dispatcher)

// Use specifies middleware that is applied to all requests.  The earliest middleware added is the outermost layer.
func Use(fn func(Handler) Handler) Option {
	return func(d *Dispatcher) { d.middleware = append(d.middleware, fn) }
}

// ReadLimit specifies the maximum size of a message read from a websocket.  Defaults to -1 which imposes no limit.
func ReadLimit(limit int64) Option {
	return func(d *Dispatcher) { d.readLimit = limit }
}

// Broadcast registers every connection served by the dispatcher with a hub, so that notifications published to the
// hub reach every client.
func Broadcast(hub *Hub) Option {
	return func(d *Dispatcher) { d.hub = hub }
}

// A Dispatcher answers requests arriving on a Conn by calling procedures from a Table.
type Dispatcher struct {
	table      *Table
	handler    Handler
	middleware []func(Handler) Handler
	readLimit  int64
	hub        *Hub
}

// NewDispatcher returns a dispatcher for the procedures in a table.
func NewDispatcher(table *Table, options ...Option) *Dispatcher {
	d := &Dispatcher{table: table, readLimit: -1}
	for _, opt := range options {
		opt(d)
	}
	d.handler = d.handleRequest
	for i := len(d.middleware) - 1; i >= 0; i-- {
		d.handler = d.middleware[i](d.handler)
	}
	return d
}

// ServeHTTP implements http.Handler by accepting a websocket and serving it until it closes.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := d.serveHTTP(w, r)
	if err != nil {
		hog.For(r).Error().Err(err).Msg(`RPC error`)
	}
}

func (d *Dispatcher) serveHTTP(w http.ResponseWriter, r *http.Request) error {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		// Accept has already written an error response.
		return err
	}
	defer func() { _ = c.CloseNow() }()
	c.SetReadLimit(d.readLimit)
	return d.Serve(r.Context(), WebSocket(c))
}

// Serve handles requests from conn until it closes or the context is cancelled, then waits for outstanding requests
// to finish.  Each request is handled in its own goroutine, so a slow resolver never delays other requests.
func (d *Dispatcher) Serve(ctx context.Context, conn Conn) error {
	var group sync.WaitGroup
	defer group.Wait()

	p := &peer{conn: conn}
	if d.hub != nil {
		d.hub.join(p)
		defer d.hub.leave(p)
	}
	for {
		frame, err := conn.Read(ctx)
		if err != nil {
			if closed(err) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		p.binary.Store(frame.Binary)
		scope := d.accept(ctx, frame, p)
		if scope == nil {
			continue
		}
		group.Add(1)
		go func() {
			defer group.Done()
			d.handle(scope)
		}()
	}
}

// accept decodes a frame and returns a scope for it if it is a request that should be handled.  Anything else is
// ignored since the channel may carry other traffic.
func (d *Dispatcher) accept(ctx context.Context, frame Frame, p *peer) *Scope {
	codec := codecFor(frame.Binary)
	var msg protocol.Message
	err := codec.Decode(frame.Data, &msg)
	if err != nil {
		hog.From(ctx).Debug().Err(err).Msg(`ignoring undecodable frame`)
		return nil
	}
	if msg.Kind != protocol.KindRequest {
		return nil
	}
	err = msg.Check()
	if err != nil {
		// without an id there is nobody to answer.
		hog.From(ctx).Debug().Err(err).Msg(`ignoring malformed request`)
		return nil
	}
	send := func(reply *protocol.Message) error {
		return p.write(ctx, codec, reply)
	}
	scope := For(ctx, msg.Request(), send)
	if msg.Version() > protocol.Version {
		_ = scope.Fail(`unsupported protocol version`)
		return nil
	}
	return scope
}

// handle runs the handler chain and guarantees that exactly one response is sent, even if middleware swallowed the
// request.
func (d *Dispatcher) handle(scope *Scope) {
	d.handler(scope)
	if !scope.Responded() {
		_ = scope.Fail(UnknownError)
	}
}

func (d *Dispatcher) handleRequest(ctx *Scope) {
	p, err := d.table.lookup(ctx.Path)
	if err != nil {
		d.fail(ctx, err)
		return
	}
	out, err := invoke(p, ctx)
	if err != nil {
		d.fail(ctx, err)
		return
	}
	err = ctx.Succ(out)
	if err != nil {
		hog.From(ctx).Warn().Err(err).Msg(`could not send response`)
	}
}

func (d *Dispatcher) fail(ctx *Scope, err error) {
	evt := hog.From(ctx).Warn()
	if errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrNotAProcedure) || errors.Is(err, ErrValidation) {
		evt = hog.From(ctx).Debug()
	}
	evt.Err(err).Str(`path`, ctx.Path).Msg(`request failed`)
	err = ctx.Fail(message(err))
	if err != nil {
		hog.From(ctx).Warn().Err(err).Msg(`could not send response`)
	}
}
