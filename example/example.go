// Command example serves a single printf procedure and a page that calls it, showing how a wrpc table is rigged into
// a server without the rest of the tracker.
package main

import (
	"context"
	"embed"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/example/printf"
	"github.com/swdunlop/tracker-go/tracker/server"
	"github.com/swdunlop/tracker-go/tracker/wrpc"
)

//go:embed www
var wwwFS embed.FS

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: `2006-01-02 15:04:05`}).With().Timestamp().Logger()
	zlog.Logger = log
	zerolog.DefaultContextLogger = &log

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	table := wrpc.MustCompose(wrpc.Router{
		"printf": printf.Procedure,
	})
	err := server.Serve(ctx,
		server.TCP(`localhost:8080`),
		server.Handle(`GET /rpc`, wrpc.NewDispatcher(table,
			wrpc.Use(func(next wrpc.Handler) wrpc.Handler {
				return func(ctx *wrpc.Scope) {
					ctx.Context = hog.With(ctx.Context, func(z zerolog.Context) zerolog.Context {
						return z.Str(`id`, ctx.ID).Str(`path`, ctx.Path)
					})
					evt := hog.From(ctx).Trace()
					if evt.Enabled() && len(ctx.Input) > 0 {
						evt.RawJSON(`input`, ctx.Input).Msg(``)
					}
					next(ctx)
				}
			}),
		)),
		server.FS(wwwFS, `GET /`), // www/index.html is served for /
	)
	if err != nil {
		log.Fatal().Err(err).Msg(`example failed`)
	}
}
