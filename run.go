package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/server"
	"github.com/swdunlop/zugzug-go"
)

func init() {
	tasks = append(tasks, zugzug.Tasks{
		{Name: "serve", Use: "Serves the tracker for a workspace", Fn: serveTracker,
			Settings: append(workspaceSettings(), zugzug.Settings{
				{Var: &listenNetwork, Name: `LISTEN_NETWORK`,
					Use: "Listening network for the address (default: \"tcp\")"},
				{Var: &listenAddress, Name: `LISTEN_ADDRESS`,
					Use: "Listening address for the service  (default: localhost:8080 if TCP used)"},
				{Var: &wwwDir, Name: `TRACKER_WWW`,
					Use: "The directory to serve for static files"},
				{Var: &noWatch, Name: `NO_WATCH`,
					Use: "Disables rescanning files when they change"},
			}...)},
	}...)
}

func serveTracker(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	cfg, err := settings()
	if err != nil {
		return err
	}
	ws, closeWorkspace, err := openWorkspace(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWorkspace()

	n, err := ws.Scanner.ScanAll(ctx)
	if err != nil {
		return err
	}
	hog.From(ctx).Info().Str(`root`, ws.Root).Int(`todos`, n).Msg(`scanned workspace`)

	var watching sync.WaitGroup
	if !cfg.Scan.NoWatch {
		watching.Add(1)
		go func() {
			defer watching.Done()
			err := ws.Scanner.Watch(ctx)
			if err != nil {
				hog.From(ctx).Warn().Err(err).Msg(`not watching for changes`)
			}
		}()
	}

	options := []server.Option{
		server.Listen(cfg.Listen.Network, cfg.Listen.Address),
		server.HTTPServer(func(svr *http.Server) { svr.ReadHeaderTimeout = 10 * time.Second }),
		server.Handle(`GET /rpc`, ws.Dispatcher()),
		server.Events(`GET /events`, ws.Hub),
	}
	if cfg.WWW != `` {
		options = append(options, server.Dir(cfg.WWW, `GET /`))
	}
	err = server.Serve(ctx, options...)
	cancel()
	watching.Wait()
	return err
}
