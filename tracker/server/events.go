package server

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/server/hook"
	"github.com/swdunlop/tracker-go/tracker/wrpc"
	sse "github.com/tmaxmax/go-sse"
)

// Events returns an option that streams every notification published to hub as a server sent event at pattern.  The
// event type is the notification topic and the data is its JSON payload, so browsers that only want to watch for
// changes do not need a websocket.
func Events(pattern string, hub *wrpc.Hub) Option {
	return func(cfg *Config) error {
		if hub == nil {
			return errors.New(`events need a hub`)
		}
		ev := &events{srv: &sse.Server{}}
		hub.Subscribe(ev.publish)
		cfg.Hook(ev)
		return Handle(pattern, ev.srv)(cfg)
	}
}

type events struct {
	srv *sse.Server
}

var _ hook.Stop = (*events)(nil)

func (ev *events) publish(topic string, data json.RawMessage) {
	if len(data) == 0 {
		data = json.RawMessage(`null`)
	}
	msg := &sse.Message{Type: sse.Type(topic)}
	msg.AppendData(string(data))
	err := ev.srv.Publish(msg)
	if err != nil && !errors.Is(err, sse.ErrProviderClosed) {
		hog.From(context.Background()).Warn().Err(err).Str(`topic`, topic).Msg(`could not publish event`)
	}
}

// Stop implements hook.Stop by ending every event stream, since the HTTP server would otherwise wait for them
// forever.
func (ev *events) Stop(ctx context.Context) error {
	err := ev.srv.Shutdown(ctx)
	if errors.Is(err, sse.ErrProviderClosed) {
		return nil
	}
	return err
}
