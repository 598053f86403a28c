// Package scan finds TODO and FIXME comments in the files of a workspace and keeps the list current as files change.
package scan

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/internal/files"
	"github.com/swdunlop/tracker-go/tracker/store"
	"github.com/swdunlop/tracker-go/tracker/watcher"
)

// StorageKey is the workspace state key holding the current list of items.
const StorageKey = `activeTodos`

// Topic is published after every change to the list of items.
const Topic = `todosUpdated`

var marker = regexp.MustCompile(`\b(?:TODO|FIXME)\b`)

// An Item is one TODO or FIXME marker.
type Item struct {
	ID       string `json:"id"`
	FilePath string `json:"filePath"`
	Line     int    `json:"line"` // 1-based
	Preview  string `json:"preview"`
}

// A Notifier is told about changes to the list of items.  A *wrpc.Hub is a Notifier.
type Notifier interface {
	Publish(ctx context.Context, topic string, data any) error
}

// An Option affects the construction of a Scanner.
type Option func(*Scanner)

// Include limits scanning to files matching one of the patterns.
func Include(patterns ...string) Option {
	return func(s *Scanner) { s.includes = append(s.includes, patterns...) }
}

// Exclude skips files and directories matching one of the patterns, instead of files.DefaultExcludes.
func Exclude(patterns ...string) Option {
	return func(s *Scanner) { s.excludes = append(s.excludes, patterns...) }
}

// Notify publishes changes to a notifier.
func Notify(n Notifier) Option {
	return func(s *Scanner) { s.notifier = n }
}

// A Scanner keeps the items found under a root directory, persisting them to workspace state after every change.
type Scanner struct {
	root     string
	state    store.Memento
	notifier Notifier
	includes []string
	excludes []string
	filter   *files.Filter

	mu    sync.Mutex
	items []Item
}

// New returns a scanner for the files under root.  Nothing is scanned until ScanAll or Watch is called.
func New(root string, state store.Memento, options ...Option) (*Scanner, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	s := &Scanner{root: root, state: state}
	for _, opt := range options {
		opt(s)
	}
	s.filter, err = files.NewFilter(s.includes, s.excludes)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the absolute path of the scanned directory.
func (s *Scanner) Root() string { return s.root }

// Items returns a copy of the current items, grouped by file.
func (s *Scanner) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// ScanAll replaces every item with the results of scanning every file, and returns the number of items found.
func (s *Scanner) ScanAll(ctx context.Context) (int, error) {
	var items []Item
	err := files.Walk(ctx, s.root, s.filter, func(rel string) error {
		found, err := s.scan(rel)
		if err != nil {
			hog.From(ctx).Debug().Err(err).Str(`path`, rel).Msg(`skipping unreadable file`)
			return nil
		}
		items = append(items, found...)
		return ctx.Err()
	})
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return len(items), s.save(ctx)
}

// ScanFile replaces the items of one file, given relative to the root.  A file that no longer exists is forgotten.
func (s *Scanner) ScanFile(ctx context.Context, rel string) error {
	found, err := s.scan(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return s.Forget(ctx, rel)
	}
	if err != nil {
		return err
	}
	path := s.path(rel)
	s.mu.Lock()
	s.items = slices.DeleteFunc(s.items, func(item Item) bool { return item.FilePath == path })
	s.items = append(s.items, found...)
	s.mu.Unlock()
	return s.save(ctx)
}

// Forget drops the items of a file or of every file under a directory, given relative to the root.
func (s *Scanner) Forget(ctx context.Context, rel string) error {
	path := s.path(rel)
	under := path + string(filepath.Separator)
	s.mu.Lock()
	n := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(item Item) bool {
		return item.FilePath == path || strings.HasPrefix(item.FilePath, under)
	})
	changed := len(s.items) != n
	s.mu.Unlock()
	if !changed {
		return nil
	}
	return s.save(ctx)
}

// Watch rescans files as they change until ctx is done.
func (s *Scanner) Watch(ctx context.Context) error {
	options := []watcher.Option{watcher.Directory(s.root), watcher.Include(s.includes...), watcher.Exclude(s.excludes...)}
	wr, err := watcher.Start(ctx, options...)
	if err != nil {
		return err
	}
	defer wr.Shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-wr.Changes():
			if !ok {
				return nil
			}
			if change.Removed {
				err = s.Forget(ctx, change.Path)
			} else {
				err = s.ScanFile(ctx, change.Path)
			}
			if err != nil {
				hog.From(ctx).Warn().Err(err).Str(`path`, change.Path).Msg(`could not rescan`)
			}
		}
	}
}

// scan returns the items in one file.  Files that are not text have no items.
func (s *Scanner) scan(rel string) ([]Item, error) {
	text, ok, err := files.ReadText(s.path(rel))
	if err != nil || !ok {
		return nil, err
	}
	return Find(s.path(rel), text), nil
}

// Find returns an item for every marker in text, attributed to path.
func Find(path, text string) []Item {
	var items []Item
	for i, line := range strings.Split(text, "\n") {
		for range marker.FindAllStringIndex(line, -1) {
			items = append(items, Item{
				ID:       uuid.NewString(),
				FilePath: path,
				Line:     i + 1,
				Preview:  strings.TrimSpace(line),
			})
		}
	}
	return items
}

func (s *Scanner) path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *Scanner) save(ctx context.Context) error {
	items := s.Items()
	if items == nil {
		items = []Item{}
	}
	err := store.PutJSON(ctx, s.state, StorageKey, items)
	if err != nil {
		return err
	}
	if s.notifier != nil {
		err = s.notifier.Publish(ctx, Topic, nil)
		if err != nil {
			hog.From(ctx).Debug().Err(err).Msg(`could not deliver every notification`)
		}
	}
	return nil
}
