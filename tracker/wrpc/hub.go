package wrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/swdunlop/tracker-go/tracker/wrpc/internal/protocol"
)

// A Hub fans notifications out to every connection served by the dispatchers that broadcast to it, and to local
// subscribers.  Notifications are not requests: clients never answer them and they never touch the pending table.
type Hub struct {
	mu    sync.Mutex
	peers map[*peer]struct{}
	subs  []func(topic string, data json.RawMessage)
}

// Subscribe registers a function that is called with every notification published to the hub.
func (h *Hub) Subscribe(fn func(topic string, data json.RawMessage)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, fn)
}

// Publish sends a notification to every connected peer and subscriber.  Delivery is best effort; the first error
// writing to a peer is returned after every peer has been tried.
func (h *Hub) Publish(ctx context.Context, topic string, data any) error {
	var js json.RawMessage
	if data != nil {
		var err error
		js, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf(`%w while encoding %s notification`, err, topic)
		}
	}
	msg := protocol.Notify(topic, js)

	h.mu.Lock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	subs := h.subs
	h.mu.Unlock()

	for _, fn := range subs {
		fn(topic, js)
	}
	var first error
	for _, p := range peers {
		err := p.write(ctx, codecFor(p.binary.Load()), msg)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *Hub) join(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.peers == nil {
		h.peers = make(map[*peer]struct{})
	}
	h.peers[p] = struct{}{}
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.peers, p)
}

// A peer is a connection being served by a dispatcher.  It remembers whether the peer last spoke MessagePack so that
// notifications use the same encoding.
type peer struct {
	conn   Conn
	binary atomic.Bool
}

func (p *peer) write(ctx context.Context, codec Codec, msg *protocol.Message) error {
	data, err := codec.Encode(msg)
	if err != nil {
		return fmt.Errorf(`%w while encoding %s`, err, msg.Kind)
	}
	return p.conn.Write(ctx, Frame{Binary: codec.Binary(), Data: data})
}
