package main

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/config"
	"github.com/swdunlop/tracker-go/tracker/host"
	"github.com/swdunlop/tracker-go/tracker/scan"
	"github.com/swdunlop/tracker-go/tracker/store"
	"github.com/swdunlop/zugzug-go"
)

var (
	configFile    string
	listenNetwork string
	listenAddress string
	databaseFile  string
	workspaceDir  string
	wwwDir        string
	trackerURL    string
	noWatch       bool
)

// workspaceSettings are shared by every task that opens a workspace.
func workspaceSettings() zugzug.Settings {
	return zugzug.Settings{
		{Var: &configFile, Name: `TRACKER_CONFIG`,
			Use: "TOML file with tracker settings; environment settings take precedence"},
		{Var: &databaseFile, Name: `TRACKER_DB`,
			Use: "SQLite file for workspace state (default: state is kept in memory)"},
		{Var: &workspaceDir, Name: `TRACKER_ROOT`,
			Use: "Workspace directory (default: \".\")"},
	}
}

// settings returns the tracker configuration, reading TRACKER_CONFIG if it is set and then applying any settings
// from the environment.  The global logging level is adjusted to match.
func settings() (config.Config, error) {
	cfg := config.Default()
	if configFile != `` {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return cfg, err
		}
	}
	for _, it := range []struct {
		dst *string
		src string
	}{
		{&cfg.Listen.Network, listenNetwork},
		{&cfg.Listen.Address, listenAddress},
		{&cfg.Database, databaseFile},
		{&cfg.Root, workspaceDir},
		{&cfg.WWW, wwwDir},
		{&cfg.URL, trackerURL},
	} {
		if it.src != `` {
			*it.dst = it.src
		}
	}
	if noWatch {
		cfg.Scan.NoWatch = true
	}
	err := cfg.Validate()
	if err != nil {
		return cfg, err
	}
	level, err := cfg.Level()
	if err != nil {
		return cfg, err
	}
	zerolog.SetGlobalLevel(level)
	return cfg, nil
}

// openWorkspace opens the state store named by the configuration and returns the workspace for its root, with a
// function that closes the store.
func openWorkspace(ctx context.Context, cfg config.Config) (*host.Workspace, func(), error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, nil, err
	}
	state, global := store.Memory(), store.Memory()
	closer := func() {}
	if cfg.Database != `` {
		db, err := store.OpenSQLite(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		err = db.Init(ctx)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		state, global = db.Scope(`workspace:`+root), db.Scope(`global`)
		closer = func() {
			if err := db.Close(); err != nil {
				hog.From(ctx).Warn().Err(err).Str(`db`, db.Path()).Msg(`could not close database`)
			}
		}
		hog.From(ctx).Debug().Str(`db`, db.Path()).Msg(`opened database`)
	}
	ws, err := host.New(root, state, global,
		scan.Include(cfg.Scan.Include...),
		scan.Exclude(cfg.Scan.Exclude...),
	)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return ws, closer, nil
}
