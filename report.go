package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/swdunlop/tracker-go/tracker/changes"
	"github.com/swdunlop/zugzug-go"
)

func init() {
	tasks = append(tasks, zugzug.Tasks{
		{Name: "scan", Use: "Lists the TODO and FIXME markers in a workspace", Fn: scanWorkspace,
			Settings: workspaceSettings()},
		{Name: "changes", Use: "Shows what changed in a workspace since the last check", Fn: showChanges,
			Settings: workspaceSettings()},
	}...)
}

func scanWorkspace(ctx context.Context) error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	ws, closeWorkspace, err := openWorkspace(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWorkspace()

	_, err = ws.Scanner.ScanAll(ctx)
	if err != nil {
		return err
	}
	for _, item := range ws.Scanner.Items() {
		path, err := filepath.Rel(ws.Root, item.FilePath)
		if err != nil {
			path = item.FilePath
		}
		fmt.Printf("%s:%d: %s\n", path, item.Line, item.Preview)
	}
	return nil
}

func showChanges(ctx context.Context) error {
	cfg, err := settings()
	if err != nil {
		return err
	}
	ws, closeWorkspace, err := openWorkspace(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeWorkspace()

	report, err := changes.Show(ctx, ws.Root, ws.Global)
	if err != nil {
		return err
	}
	fmt.Println(report.Info)
	if report.Diff != `` {
		fmt.Println(report.Diff)
	}
	return nil
}
