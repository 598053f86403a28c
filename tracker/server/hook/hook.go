// Package hook defines interfaces that server.Config.Hook recognizes and will apply at various stages of setting up
// a server.  Hooks are applied in the order they were added.
package hook

import (
	"context"
	"net"
	"net/http"
)

// Listen hooks create the listener for the server.  Only the first is used.
type Listen interface {
	Listen(ctx context.Context, lc *net.ListenConfig) (net.Listener, error)
}

// Listener hooks are called when the server is setting up a new listener.
type Listener interface {
	ServerListener(*net.ListenConfig)
}

// Server hooks are called when the server is setting up a new HTTP server.
type Server interface {
	ServerHTTP(*http.Server)
}

// Mux hooks are called when the server is setting up a new HTTP multiplexer.
type Mux interface {
	ServerMux(*http.ServeMux)
}

// Listening hooks are told the address of the listener once it is open.
type Listening interface {
	Listening(net.Addr)
}

// Stop hooks are called when the server starts to shut down, before it waits for requests to finish.  Handlers of
// long lived requests use them to end those requests.
type Stop interface {
	Stop(ctx context.Context) error
}
