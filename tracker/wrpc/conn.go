package wrpc

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"
)

// A Frame is a single message on a Conn.  Binary frames carry MessagePack, text frames carry JSON.
type Frame struct {
	Binary bool
	Data   []byte
}

// A Conn is a bidirectional, message oriented channel between a host and a client, like the postMessage channel between
// an editor and its webview.  Read is only called from one goroutine; Write may be called concurrently.  Read returns
// io.EOF once the channel has been closed by either side.
type Conn interface {
	Read(ctx context.Context) (Frame, error)
	Write(ctx context.Context, frame Frame) error
	Close() error
}

// Pipe returns two connected in-memory Conns.  Frames written to one are read from the other.  Closing either end
// closes both.
func Pipe() (Conn, Conn) {
	shared := &pipeState{done: make(chan struct{})}
	ab := make(chan Frame, 16)
	ba := make(chan Frame, 16)
	return &pipeEnd{pipeState: shared, in: ba, out: ab}, &pipeEnd{pipeState: shared, in: ab, out: ba}
}

type pipeState struct {
	done chan struct{}
	once sync.Once
}

type pipeEnd struct {
	*pipeState
	in  <-chan Frame
	out chan<- Frame
}

func (p *pipeEnd) Read(ctx context.Context) (Frame, error) {
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.done:
		return Frame{}, io.EOF
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (p *pipeEnd) Write(ctx context.Context, frame Frame) error {
	// check first so a closed pipe never accepts a frame, even when the buffer has room.
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	select {
	case p.out <- frame:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}

// WebSocket adapts a websocket connection to a Conn.  The caller must not read from the websocket while the Conn is in
// use.
func WebSocket(c *websocket.Conn) Conn { return &wsConn{c: c} }

// Dial connects to a tracker host listening for websockets at the given URL.
func Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(-1)
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c       *websocket.Conn
	closing atomic.Bool
}

func (ws *wsConn) Read(ctx context.Context) (Frame, error) {
	mt, data, err := ws.c.Read(ctx)
	if err != nil {
		if ws.closing.Load() || websocket.CloseStatus(err) >= 0 || errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}
	return Frame{Binary: mt == websocket.MessageBinary, Data: data}, nil
}

func (ws *wsConn) Write(ctx context.Context, frame Frame) error {
	mt := websocket.MessageText
	if frame.Binary {
		mt = websocket.MessageBinary
	}
	return ws.c.Write(ctx, mt, frame.Data)
}

func (ws *wsConn) Close() error {
	ws.closing.Store(true)
	return ws.c.Close(websocket.StatusNormalClosure, ``)
}

// closed reports whether err marks the orderly end of a Conn.
func closed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, ErrClosed)
}
