package wrpc

import (
	"context"
	"errors"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/swdunlop/tracker-go/tracker/wrpc/internal/protocol"
)

func TestQueryCache(t *testing.T) {
	var fetches, saves atomic.Int32
	var value atomic.Value
	value.Store(`first`)
	client := connect(t, Router{
		"fetch": Define(None(), func(*Scope, Void) (string, error) {
			fetches.Add(1)
			return value.Load().(string), nil
		}),
		"save": Define(Var[string](`min=1`), func(_ *Scope, in string) (bool, error) {
			saves.Add(1)
			value.Store(in)
			return true, nil
		}),
	})
	ctx := context.Background()
	cache := NewCache()
	fetch := Query[Void, string]{Client: client, Cache: cache, Path: `fetch`}

	for range 3 {
		got, err := fetch.Fetch(ctx, Void{})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if got != `first` {
			t.Fatalf("expected first, got %q", got)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Fatalf("expected one fetch, got %d", n)
	}

	var succeeded, failed []string
	save := Mutation[string, bool]{
		Client:      client,
		Path:        `save`,
		Cache:       cache,
		Invalidates: []string{`fetch`},
		OnSuccess:   func(in string, _ bool) { succeeded = append(succeeded, in) },
		OnError:     func(in string, _ error) { failed = append(failed, in) },
	}
	if _, err := save.Mutate(ctx, `second`); err != nil {
		t.Fatalf("save: %v", err)
	}
	_, err := save.Mutate(ctx, ``)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected a remote error for an empty save, got %v", err)
	}
	if len(succeeded) != 1 || succeeded[0] != `second` || len(failed) != 1 || failed[0] != `` {
		t.Fatalf("unexpected callbacks: succeeded %q failed %q", succeeded, failed)
	}
	if n := saves.Load(); n != 1 {
		t.Fatalf("expected one save to reach the resolver, got %d", n)
	}

	got, err := fetch.Fetch(ctx, Void{})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got != `second` {
		t.Fatalf("expected the invalidated query to refetch, got %q", got)
	}
	if n := fetches.Load(); n != 2 {
		t.Fatalf("expected two fetches, got %d", n)
	}
}

func TestCacheKeysIncludeInput(t *testing.T) {
	var fetches atomic.Int32
	client := connect(t, Router{
		"double": Define(Decode[int](), func(_ *Scope, in int) (int, error) {
			fetches.Add(1)
			return in * 2, nil
		}),
	})
	ctx := context.Background()
	double := Query[int, int]{Client: client, Cache: NewCache(), Path: `double`}
	for _, in := range []int{1, 2, 1, 2} {
		got, err := double.Fetch(ctx, in)
		if err != nil {
			t.Fatalf("double %d: %v", in, err)
		}
		if got != in*2 {
			t.Fatalf("double %d gave %d", in, got)
		}
	}
	if n := fetches.Load(); n != 2 {
		t.Fatalf("expected two fetches, got %d", n)
	}
}

func TestSharedFetchOutlivesFirstCaller(t *testing.T) {
	client, host := fakeHost(t)
	cache := NewCache()
	fetch := Query[Void, string]{Client: client, Cache: cache, Path: `fetch`}

	type result struct {
		value string
		err   error
	}
	first, second := make(chan result, 1), make(chan result, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		v, err := fetch.Fetch(ctx, Void{})
		first <- result{v, err}
	}()
	req := readRequest(t, host)
	go func() {
		v, err := fetch.Fetch(context.Background(), Void{})
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond) // let the second fetch join the call in flight
	cancel()
	if r := <-first; !errors.Is(r.err, context.Canceled) {
		t.Fatalf("expected the first fetch to be cancelled, got %+v", r)
	}

	sendReply(t, host, protocol.Succ(req.ID, json.RawMessage(`"shared"`)))
	select {
	case r := <-second:
		if r.err != nil || r.value != `shared` {
			t.Fatalf("expected the second fetch to get the shared result, got %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatal("second fetch did not finish")
	}
	if _, err := receive(t, host, 50*time.Millisecond); err == nil {
		t.Fatal("expected a single request to reach the host")
	}
}
