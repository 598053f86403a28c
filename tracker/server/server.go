// Package server rigs HTTP handlers, listeners and long lived event streams together into a service that runs until
// its context is cancelled.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/server/hook"
)

// Serve will serve a configuration built from the provided options until the context is cancelled.
func Serve(ctx context.Context, options ...Option) error {
	cfg, err := New(options...)
	if err != nil {
		return err
	}
	return cfg.Serve(ctx)
}

// New returns a new server configuration.
func New(options ...Option) (*Config, error) {
	cfg := new(Config)
	err := cfg.Apply(options...)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// A Config is a server configuration.
type Config struct {
	serve      bool            // true once Serve has been called
	serving    bool            // true after Serve has been called and before it returns
	hooks      []any           // hooks to apply
	done       <-chan struct{} // closed when the server starts to shut down
	middleware []func(http.Handler) http.Handler
}

// Done returns a channel that will be closed when the server starts to shut down.  This is nil unless the server has
// been started.
func (cfg *Config) Done() <-chan struct{} {
	return cfg.done
}

// Hook adds hooks to the configuration, see the hook package for interfaces that hooks can implement.  This is
// normally done by various options.
func (cfg *Config) Hook(hooks ...any) {
	cfg.hooks = append(cfg.hooks, hooks...)
}

// Apply applies the given options to the config; should not be called after Serve.
func (cfg *Config) Apply(options ...Option) error {
	if cfg.serving {
		return errors.New(`cannot apply options while a server is running`)
	} else if cfg.serve {
		return errors.New(`cannot apply options after a server has been run`)
	}

	for _, option := range options {
		err := option(cfg)
		if err != nil {
			return err
		}
	}
	return nil
}

// Serve will run the configured server until the context is cancelled.  When it is, Stop hooks are run before the
// HTTP server waits for outstanding requests.
func (cfg *Config) Serve(ctx context.Context) error {
	cfg.serve = true
	cfg.serving = true

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cfg.done = ctx.Done()
	defer func() { cfg.done, cfg.serving = nil, false }()

	hooks := cfg.hooks

	var mux http.ServeMux
	for _, it := range hooks {
		if impl, ok := it.(hook.Mux); ok {
			impl.ServerMux(&mux)
		}
	}

	var svr http.Server
	svr.Handler = &mux
	// requests share the server context so that websockets end when it is cancelled.
	svr.BaseContext = func(net.Listener) context.Context { return ctx }
	for _, it := range hooks {
		if impl, ok := it.(hook.Server); ok {
			impl.ServerHTTP(&svr)
		}
	}

	var lcf net.ListenConfig
	var listen hook.Listen
	for _, it := range hooks {
		if impl, ok := it.(hook.Listener); ok {
			impl.ServerListener(&lcf)
		}
		if impl, ok := it.(hook.Listen); ok && listen == nil {
			listen = impl
		}
	}
	if listen == nil {
		return errors.New(`no listener configured`)
	}

	lr, err := listen.Listen(ctx, &lcf)
	if err != nil {
		return err
	}
	// no need to defer lr.Close, svr.Shutdown will close it
	for _, it := range hooks {
		if impl, ok := it.(hook.Listening); ok {
			impl.Listening(lr.Addr())
		}
	}

	var stopped sync.WaitGroup
	stopped.Add(1)
	go func() {
		defer stopped.Done()
		<-ctx.Done()
		for _, it := range hooks {
			if impl, ok := it.(hook.Stop); ok {
				if err := impl.Stop(context.Background()); err != nil {
					hog.From(ctx).Warn().Err(err).Msg(`stop hook failed`)
				}
			}
		}
		_ = svr.Shutdown(context.Background())
	}()

	hog.From(ctx).Info().Stringer(`address`, lr.Addr()).Msg(`starting HTTP service`)
	err = svr.Serve(lr)
	cancel()
	stopped.Wait()
	hog.From(ctx).Info().Err(err).Msg(`HTTP service stopped`)
	if err == http.ErrServerClosed {
		return nil
	}
	_ = lr.Close() // just in case, since we did not have a shutdown or server close.
	return err
}

// HTTPServer returns an Option that adjusts the http.Server before it starts, such as its timeouts.
func HTTPServer(options ...func(*http.Server)) Option {
	return func(cfg *Config) error {
		cfg.Hook(serverHook(func(svr *http.Server) {
			for _, option := range options {
				option(svr)
			}
		}))
		return nil
	}
}

type serverHook func(*http.Server)

func (fn serverHook) ServerHTTP(svr *http.Server) { fn(svr) }

// An Option is a function that modifies a Config before it is served.
type Option func(*Config) error
