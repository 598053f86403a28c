package server

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/swdunlop/tracker-go/tracker/server/hook"
)

// TCP returns an Option that listens to a TCP socket on the provided address.
func TCP(address string) Option {
	return Listen("tcp", address)
}

// Unix returns an Option that listens to a Unix socket on the provided path.
func Unix(path string) Option {
	return Listen("unix", path)
}

// Listen returns an Option that listens to the provided network and address.
func Listen(network, address string) Option {
	return func(cfg *Config) error {
		if network == `` || address == `` {
			return errors.New(`local listeners must configure both network and address`)
		}
		cfg.Hook(&listener{network, address})
		return nil
	}
}

type listener struct {
	network string
	address string
}

// Listen implements hook.Listen by returning a net.Listener for the configured network and address.
func (l *listener) Listen(ctx context.Context, lc *net.ListenConfig) (net.Listener, error) {
	return lc.Listen(ctx, l.network, l.address)
}

var _ hook.Listen = (*listener)(nil)

// KeepAlive specifies the keepalive duration for connections accepted by the listener.
func KeepAlive(keepalive time.Duration) Option {
	return ListenConfig(func(lc *net.ListenConfig) { lc.KeepAlive = keepalive })
}

// ListenConfig returns an Option that adjusts the net.ListenConfig used to create listeners.
func ListenConfig(options ...func(*net.ListenConfig)) Option {
	return func(cfg *Config) error {
		cfg.Hook(listenerHook(func(lc *net.ListenConfig) {
			for _, option := range options {
				option(lc)
			}
		}))
		return nil
	}
}

type listenerHook func(*net.ListenConfig)

func (fn listenerHook) ServerListener(lc *net.ListenConfig) { fn(lc) }

// OnListen returns an Option that calls fn with the address of the listener once it is open, which is useful when
// listening to port 0.
func OnListen(fn func(net.Addr)) Option {
	return func(cfg *Config) error {
		cfg.Hook(listeningHook(fn))
		return nil
	}
}

type listeningHook func(net.Addr)

func (fn listeningHook) Listening(addr net.Addr) { fn(addr) }
