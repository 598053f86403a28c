package wrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/wrpc/internal/protocol"
)

// A Client issues requests over a Conn and matches responses to callers by request ID.  One client is created per
// session and owns its pending table; Close rejects every call that is still waiting.
//
// Run must be running for calls to complete.
type Client struct {
	conn  Conn
	codec Codec

	mu      sync.Mutex
	pending map[string]chan reply
	subs    []func(topic string, data json.RawMessage)
	closed  bool
}

type reply struct {
	result json.RawMessage
	err    error
}

// A ClientOption affects the construction of a Client.
type ClientOption func(*Client)

// Binary makes a client send MessagePack frames instead of JSON.
func Binary() ClientOption {
	return func(c *Client) { c.codec = MessagePack }
}

// NewClient returns a client for conn.
func NewClient(conn Conn, options ...ClientOption) *Client {
	c := &Client{conn: conn, codec: JSON, pending: make(map[string]chan reply)}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// OnNotify registers a function that is called, from the Run goroutine, for every notification sent by the host.
func (c *Client) OnNotify(fn func(topic string, data json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Call sends a request for the procedure at path and waits for its response.  There is no timeout: if the host never
// answers, Call waits until ctx is done or the client is closed.  When ctx ends first, the call is abandoned locally
// and a late response is ignored; the host is not told.
func (c *Client) Call(ctx context.Context, path string, input any) (json.RawMessage, error) {
	var raw json.RawMessage
	if input != nil {
		var err error
		raw, err = json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf(`%w while encoding input for %s`, err, path)
		}
	}
	id := uuid.NewString()
	data, err := c.codec.Encode(&protocol.Message{
		Kind: protocol.KindRequest, V: protocol.Version, ID: id, Path: path, Input: raw,
	})
	if err != nil {
		return nil, fmt.Errorf(`%w while encoding request for %s`, err, path)
	}

	ch := make(chan reply, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	err = c.conn.Write(ctx, Frame{Binary: c.codec.Binary(), Data: data})
	if err != nil {
		c.forget(id)
		return nil, err
	}
	select {
	case r := <-ch:
		return r.result, r.err
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

// Pending returns the number of calls waiting for a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Run reads responses and notifications until the connection closes or ctx is cancelled.  Every call still pending
// when Run returns is rejected with ErrClosed.
func (c *Client) Run(ctx context.Context) error {
	defer c.shutdown()
	for {
		frame, err := c.conn.Read(ctx)
		if err != nil {
			if closed(err) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		var msg protocol.Message
		err = codecFor(frame.Binary).Decode(frame.Data, &msg)
		if err == nil {
			err = msg.Check()
		}
		if err != nil {
			hog.From(ctx).Debug().Err(err).Msg(`ignoring malformed message`)
			continue
		}
		c.receive(ctx, &msg)
	}
}

func (c *Client) receive(ctx context.Context, msg *protocol.Message) {
	var r reply
	switch msg.Kind {
	case protocol.KindSuccess:
		r.result = msg.Result
	case protocol.KindError:
		r.err = &RemoteError{Message: msg.Error.Message}
	case protocol.KindNotify:
		c.notify(msg.Topic, msg.Data)
		return
	default:
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	delete(c.pending, msg.ID)
	c.mu.Unlock()
	if !ok {
		// late or duplicate delivery
		hog.From(ctx).Debug().Str(`id`, msg.ID).Msg(`ignoring response without a pending call`)
		return
	}
	ch <- r
}

func (c *Client) notify(topic string, data json.RawMessage) {
	c.mu.Lock()
	subs := c.subs
	c.mu.Unlock()
	for _, fn := range subs {
		fn(topic, data)
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// Close closes the connection and rejects every pending call with ErrClosed.
func (c *Client) Close() error {
	c.shutdown()
	return c.conn.Close()
}

func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.pending {
		ch <- reply{err: ErrClosed}
		delete(c.pending, id)
	}
}
