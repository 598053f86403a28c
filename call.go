package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/swdunlop/tracker-go/tracker/wrpc"
	"github.com/swdunlop/zugzug-go"
	"github.com/swdunlop/zugzug-go/zug/parser"
)

func init() {
	tasks = append(tasks, zugzug.Tasks{
		{Name: "call", Use: "Calls a procedure on a running tracker: call <path> [json]", Fn: callTracker,
			Parser: parser.New(
				parser.String(&callTimeout, "timeout", "t", "How long to wait for a response (default: 30s)"),
			),
			Settings: zugzug.Settings{
				{Var: &configFile, Name: `TRACKER_CONFIG`,
					Use: "TOML file with tracker settings; environment settings take precedence"},
				{Var: &trackerURL, Name: `TRACKER_URL`,
					Use: "Websocket URL of the tracker (default: ws://localhost:8080/rpc)"},
			}},
	}...)
}

var callTimeout string

func callTracker(ctx context.Context) error {
	args := parser.Args(ctx)
	if len(args) < 1 || len(args) > 2 {
		return errors.New("expected a procedure path and optional JSON input")
	}
	path := args[0]
	var input any
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf(`input for %v is not valid JSON`, path)
		}
		input = json.RawMessage(args[1])
	}

	timeout := 30 * time.Second
	if callTimeout != `` {
		var err error
		timeout, err = time.ParseDuration(callTimeout)
		if err != nil {
			return fmt.Errorf(`%w while parsing timeout`, err)
		}
	}
	cfg, err := settings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, err := wrpc.Dial(ctx, cfg.URL)
	if err != nil {
		return fmt.Errorf(`%w while connecting to %v`, err, cfg.URL)
	}
	client := wrpc.NewClient(conn)
	defer client.Close()
	go func() { _ = client.Run(ctx) }()

	result, err := client.Call(ctx, path, input)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if json.Indent(&buf, result, ``, `  `) != nil {
		buf.Reset()
		buf.Write(result)
	}
	fmt.Println(buf.String())
	return nil
}
