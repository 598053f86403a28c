package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/swdunlop/tracker-go/tracker/wrpc"
)

// start serves options on a random local port and returns its address.  The server is stopped when the test ends.
func start(t *testing.T, options ...Option) string {
	t.Helper()
	addrs := make(chan net.Addr, 1)
	options = append(options, TCP(`127.0.0.1:0`), OnListen(func(addr net.Addr) { addrs <- addr }))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, options...) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	select {
	case addr := <-addrs:
		return addr.String()
	case err := <-done:
		t.Fatalf("serve: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	return ``
}

func TestServe(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, `index.html`), []byte(`<h1>tracker</h1>`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	hub := new(wrpc.Hub)
	table := wrpc.MustCompose(wrpc.Router{
		"ping": wrpc.Define(wrpc.None(), func(*wrpc.Scope, wrpc.Void) (string, error) { return `pong`, nil }),
	})
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Add(`X-Tag`, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	addr := start(t,
		Handle(`GET /rpc`, wrpc.NewDispatcher(table, wrpc.Broadcast(hub))),
		Events(`GET /events`, hub),
		Group(
			Use(tag(`outer`)),
			Use(tag(`inner`)),
			HandleFunc(`GET /hello`, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `hello`)
			}),
		),
		Dir(dir, `GET /`),
	)
	base := `http://` + addr

	t.Run(`static`, func(t *testing.T) {
		rsp, err := http.Get(base + `/`)
		if err != nil {
			t.Fatal(err)
		}
		defer rsp.Body.Close()
		body, _ := io.ReadAll(rsp.Body)
		if rsp.StatusCode != http.StatusOK || !strings.Contains(string(body), `tracker`) {
			t.Fatalf("expected index.html, got %v %q", rsp.Status, body)
		}
		if rsp.Header.Get(`X-Tag`) != `` {
			t.Fatalf("middleware leaked out of its group")
		}
	})

	t.Run(`middleware`, func(t *testing.T) {
		rsp, err := http.Get(base + `/hello`)
		if err != nil {
			t.Fatal(err)
		}
		defer rsp.Body.Close()
		if got := strings.Join(rsp.Header.Values(`X-Tag`), `,`); got != `outer,inner` {
			t.Fatalf("expected outer middleware first, got %q", got)
		}
	})

	t.Run(`rpc`, func(t *testing.T) {
		ctx := context.Background()
		conn, err := wrpc.Dial(ctx, `ws://`+addr+`/rpc`)
		if err != nil {
			t.Fatal(err)
		}
		client := wrpc.NewClient(conn)
		go func() { _ = client.Run(ctx) }()
		defer client.Close()
		pong, err := wrpc.Call(ctx, client, wrpc.Path[wrpc.Void, string](`ping`), wrpc.Void{})
		if err != nil {
			t.Fatal(err)
		}
		if pong != `pong` {
			t.Fatalf("expected pong, got %q", pong)
		}
	})

	t.Run(`events`, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// events published before the stream subscribes are lost, so keep publishing until one arrives.
		go func() {
			for ctx.Err() == nil {
				_ = hub.Publish(ctx, `todosUpdated`, []string{`a.go`})
				time.Sleep(20 * time.Millisecond)
			}
		}()

		req, err := http.NewRequestWithContext(ctx, `GET`, base+`/events`, nil)
		if err != nil {
			t.Fatal(err)
		}
		rsp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		defer rsp.Body.Close()
		if ct := rsp.Header.Get(`Content-Type`); !strings.HasPrefix(ct, `text/event-stream`) {
			t.Fatalf("expected an event stream, got %q", ct)
		}
		scanner := bufio.NewScanner(rsp.Body)
		var event bool
		for scanner.Scan() {
			line := scanner.Text()
			if line == `event: todosUpdated` {
				event = true
				continue
			}
			if event && strings.HasPrefix(line, `data: `) {
				if data := strings.TrimPrefix(line, `data: `); data != `["a.go"]` {
					t.Fatalf("expected the notification payload, got %q", data)
				}
				return
			}
		}
		t.Fatalf("stream ended without an event: %v", scanner.Err())
	})
}

func TestNoListener(t *testing.T) {
	err := Serve(context.Background(), HandleFunc(`GET /`, http.NotFound))
	if err == nil || !strings.Contains(err.Error(), `no listener`) {
		t.Fatalf("expected a missing listener error, got %v", err)
	}
}

func TestListenNeedsAddress(t *testing.T) {
	_, err := New(Listen(`unix`, ``))
	if err == nil {
		t.Fatal("expected an error for a listener without an address")
	}
}

func TestApplyWhileServing(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatal(err)
	}
	cfg.serve = true
	if err := cfg.Apply(TCP(`127.0.0.1:0`)); err == nil {
		t.Fatal("expected options to be rejected after serving")
	}
}

func TestHooksApplyInOrder(t *testing.T) {
	var timeout time.Duration
	addrs := make(chan net.Addr, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx,
			TCP(`127.0.0.1:0`),
			Unix(filepath.Join(t.TempDir(), `tracker.sock`)),
			HTTPServer(func(svr *http.Server) { svr.ReadHeaderTimeout = time.Second }),
			HTTPServer(func(svr *http.Server) { svr.ReadHeaderTimeout *= 2 }),
			HTTPServer(func(svr *http.Server) { timeout = svr.ReadHeaderTimeout }),
			OnListen(func(addr net.Addr) { addrs <- addr }),
		)
	}()
	select {
	case addr := <-addrs:
		if addr.Network() != `tcp` {
			t.Errorf("expected the first listener to be used, got %v %v", addr.Network(), addr)
		}
	case err := <-done:
		t.Fatalf("serve: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
	if timeout != 2*time.Second {
		t.Fatalf("expected server hooks to run in order, got %v", timeout)
	}
}
