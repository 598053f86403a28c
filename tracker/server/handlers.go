package server

import (
	"io/fs"
	"net/http"
	"os"

	"github.com/swdunlop/tracker-go/tracker/server/hook"
)

// FS returns an option that serves the given file system at any of the given patterns.
func FS(filesystem fs.FS, patterns ...string) Option {
	return func(cfg *Config) error {
		fs := http.FileServer(http.FS(filesystem))
		for _, pattern := range patterns {
			err := Handle(pattern, fs)(cfg)
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// Dir returns an option that serves the files in a directory at any of the given patterns.
func Dir(dir string, patterns ...string) Option {
	return func(cfg *Config) error {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return &fs.PathError{Op: `serve`, Path: dir, Err: fs.ErrInvalid}
		}
		return FS(os.DirFS(dir), patterns...)(cfg)
	}
}

// Use returns an option that applies the given middleware to all subsequent handlers.  You can stack middleware
// multiple times, the earliest middleware added will be the outermost layer and therefore will be run first.
func Use(fn func(http.Handler) http.Handler) Option {
	return func(cfg *Config) error {
		cfg.middleware = append(cfg.middleware, fn)
		return nil
	}
}

// HandleFunc accepts a http.ServeMux pattern and a handler function.
func HandleFunc(pattern string, fn func(w http.ResponseWriter, r *http.Request)) Option {
	var handler http.Handler = http.HandlerFunc(fn)
	return Handle(pattern, handler)
}

// Handle accepts a http.ServeMux pattern and a http.Handler.
func Handle(pattern string, handler http.Handler) Option {
	return func(cfg *Config) error {
		for i := len(cfg.middleware) - 1; i >= 0; i-- {
			handler = cfg.middleware[i](handler)
		}
		cfg.Hook(&patternHandler{pattern: pattern, handler: handler})
		return nil
	}
}

// Group organizes a group of options into a single option.  This is useful for isolating a set of handlers and
// middleware so that the middleware does not affect handlers outside of the group.
func Group(options ...Option) Option {
	return func(cfg *Config) error {
		middleware := cfg.middleware
		defer func() { cfg.middleware = middleware }()
		cfg.middleware = cfg.middleware[:len(cfg.middleware):len(cfg.middleware)]
		for _, option := range options {
			err := option(cfg)
			if err != nil {
				return err
			}
		}
		return nil
	}
}

var _ hook.Mux = (*patternHandler)(nil)

type patternHandler struct {
	pattern string
	handler http.Handler
}

// ServerMux implements hook.Mux.
func (ph *patternHandler) ServerMux(mux *http.ServeMux) {
	mux.Handle(ph.pattern, ph.handler)
}
