package wrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// A Cache holds the results of queries until they are invalidated.  Identical fetches that overlap share one call.
type Cache struct {
	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]json.RawMessage
	epochs  map[string]uint64 // bumped by Invalidate so in-flight fetches do not store stale results
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]json.RawMessage), epochs: make(map[string]uint64)}
}

// Invalidate drops every cached result for the given paths.
func (c *Cache) Invalidate(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, path := range paths {
		c.epochs[path]++
		prefix := path + "\x00"
		for key := range c.entries {
			if strings.HasPrefix(key, prefix) {
				delete(c.entries, key)
			}
		}
	}
}

func (c *Cache) fetch(ctx context.Context, client *Client, path string, input any) (json.RawMessage, error) {
	js, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf(`%w while encoding input for %s`, err, path)
	}
	key := path + "\x00" + string(js)

	c.mu.Lock()
	if raw, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return raw, nil
	}
	epoch := c.epochs[path]
	c.mu.Unlock()

	// the call is shared by every caller that joins it, so one caller giving up must not end it for the rest.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		raw, err := client.Call(shared, path, input)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epochs[path] == epoch {
			c.entries[key] = raw
		}
		c.mu.Unlock()
		return raw, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(json.RawMessage), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// A Query fetches the result of a procedure through a cache.
type Query[I, O any] struct {
	Client *Client
	Cache  *Cache
	Path   Path[I, O]
}

// Fetch returns the cached result for input, calling the procedure if there is none.  When ctx ends, Fetch returns
// but a call shared with other fetches carries on until the host answers or the client closes.
func (q Query[I, O]) Fetch(ctx context.Context, input I) (O, error) {
	var out O
	var in any = input
	if _, ok := in.(Void); ok {
		in = nil
	}
	raw, err := q.Cache.fetch(ctx, q.Client, string(q.Path), in)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	if err != nil {
		return out, fmt.Errorf(`%w while decoding result of %s`, err, q.Path)
	}
	return out, nil
}

// A Mutation calls a procedure that changes host state, then reports the outcome to its callbacks.  On success, the
// queries named by Invalidates are dropped from Cache.
type Mutation[I, O any] struct {
	Client      *Client
	Path        Path[I, O]
	Cache       *Cache
	Invalidates []string
	OnSuccess   func(input I, output O)
	OnError     func(input I, err error)
}

// Mutate calls the procedure with input.
func (m Mutation[I, O]) Mutate(ctx context.Context, input I) (O, error) {
	out, err := Call(ctx, m.Client, m.Path, input)
	if err != nil {
		if m.OnError != nil {
			m.OnError(input, err)
		}
		return out, err
	}
	if m.Cache != nil {
		m.Cache.Invalidate(m.Invalidates...)
	}
	if m.OnSuccess != nil {
		m.OnSuccess(input, out)
	}
	return out, nil
}
