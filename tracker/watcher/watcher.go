// Package watcher reports changes to the files under a directory tree, using fsnotify for events and glob patterns
// to decide which files are interesting.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/internal/files"
)

// Start a watcher with the provided options.  The watcher stops when ctx is done or Shutdown is called.
func Start(ctx context.Context, options ...Option) (Interface, error) {
	wr := &watcher{}
	for _, option := range options {
		err := option(wr)
		if err != nil {
			return nil, err
		}
	}
	err := wr.start(ctx)
	if err != nil {
		return nil, err
	}
	return wr, nil
}

// An Option is a function that can manipulate a watcher during construction
type Option func(*watcher) error

// Include specifies one or more file patterns to include in the watch.
// If no patterns are specified, all files are included.
func Include(patterns ...string) Option {
	return func(wr *watcher) error {
		wr.includes = append(wr.includes, patterns...)
		return nil
	}
}

// Exclude specifies one or more file or directory patterns to exclude from the watch.
// If no patterns are specified, files.DefaultExcludes are used.
// If a file matches both an include and an exclude pattern, it is excluded.
func Exclude(patterns ...string) Option {
	return func(wr *watcher) error {
		wr.excludes = append(wr.excludes, patterns...)
		return nil
	}
}

// Directory specifies the directory to watch recursively.
// If no directory is specified, the current working directory is watched.
func Directory(path string) Option {
	return func(wr *watcher) error {
		wr.root = path
		return nil
	}
}

// A Change reports that a file was written, created, removed or renamed away.
type Change struct {
	// Path is relative to the watched directory, with forward slashes.
	Path string

	// Removed is true if the file no longer exists under Path.
	Removed bool
}

// Interface describes the watcher interface
type Interface interface {
	Changes() <-chan Change
	Shutdown()
}

type watcher struct {
	includes []string
	excludes []string
	root     string
	filter   *files.Filter

	fsnotify   *fsnotify.Watcher
	changeCh   chan Change   // sent when the watcher has observed a change
	shutdownCh chan struct{} // closed when the watcher should shut down
	doneCh     chan struct{} // closed when the watcher is done
	once       sync.Once
}

func (wr *watcher) start(ctx context.Context) (err error) {
	if wr.root == `` {
		wr.root = `.`
	}
	wr.filter, err = files.NewFilter(wr.includes, wr.excludes)
	if err != nil {
		return err
	}
	wr.fsnotify, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	err = wr.watchTree(wr.root, nil)
	if err != nil {
		wr.fsnotify.Close()
		return err
	}
	wr.changeCh = make(chan Change, 64)
	wr.shutdownCh = make(chan struct{})
	wr.doneCh = make(chan struct{})
	go wr.process(ctx)
	return nil
}

// watchTree adds every directory under dir that is not excluded.  If found is not nil, it is called with every
// interesting file found along the way.
func (wr *watcher) watchTree(dir string, found func(rel string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := files.Rel(wr.root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if wr.filter.SkipDir(rel) {
				return filepath.SkipDir
			}
			return wr.fsnotify.Add(path)
		}
		if found != nil && wr.filter.Include(rel) {
			found(rel)
		}
		return nil
	})
}

func (wr *watcher) Changes() <-chan Change {
	return wr.changeCh
}

func (wr *watcher) Shutdown() {
	wr.once.Do(func() { close(wr.shutdownCh) })
	<-wr.doneCh
}

func (wr *watcher) process(ctx context.Context) {
	defer close(wr.doneCh)
	defer close(wr.changeCh)
	defer wr.fsnotify.Close()
	for {
		select {
		case <-wr.shutdownCh:
			return
		case <-ctx.Done():
			return
		case event, ok := <-wr.fsnotify.Events:
			if !ok {
				return
			}
			wr.processNotification(ctx, event)
		case err, ok := <-wr.fsnotify.Errors:
			if !ok {
				return
			}
			hog.From(ctx).Warn().Err(err).Msg(`file watcher error`)
		}
	}
}

func (wr *watcher) processNotification(ctx context.Context, event fsnotify.Event) {
	rel, err := files.Rel(wr.root, event.Name)
	if err != nil {
		return
	}
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if wr.filter.SkipDir(rel) {
				return
			}
			// files may have been created before the directory was watched, and a renamed directory arrives as a
			// create of its new name.
			err = wr.watchTree(event.Name, func(rel string) { wr.issueChange(ctx, Change{Path: rel}) })
			if err != nil {
				hog.From(ctx).Warn().Err(err).Str(`path`, rel).Msg(`could not watch directory`)
			}
			return
		}
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		wr.issueChange(ctx, Change{Path: rel})
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		_ = wr.fsnotify.Remove(event.Name)
		wr.issueChange(ctx, Change{Path: rel, Removed: true})
	}
}

func (wr *watcher) issueChange(ctx context.Context, change Change) {
	if !wr.filter.Include(change.Path) {
		return
	}
	select {
	case <-wr.shutdownCh:
	case <-ctx.Done():
	case wr.changeCh <- change:
	}
}
