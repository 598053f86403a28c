// Package files walks the text files of a workspace, skipping what the user asked to skip.
package files

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/swdunlop/html-go/hog"
)

// DefaultExcludes are used by a Filter that has no exclude patterns: dot files, dependency trees and build output.
var DefaultExcludes = []string{`.*`, `node_modules`, `vendor`}

// A Filter decides which files under a root are interesting.  Patterns are globs matched against the base name of a
// file and, for excludes, of every directory above it.
type Filter struct {
	includes []glob.Glob
	excludes []glob.Glob
}

// NewFilter compiles include and exclude patterns.  With no includes, every file is included; with no excludes,
// DefaultExcludes apply.  A file matching both an include and an exclude is excluded.
func NewFilter(includes, excludes []string) (*Filter, error) {
	if len(excludes) == 0 {
		excludes = DefaultExcludes
	}
	var f Filter
	var err error
	f.includes, err = compile(includes)
	if err != nil {
		return nil, err
	}
	f.excludes, err = compile(excludes)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	seq := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf(`%w in %q`, err, pattern)
		}
		seq = append(seq, g)
	}
	return seq, nil
}

// SkipDir reports whether a directory, given relative to the root with forward slashes, should not be entered.
func (f *Filter) SkipDir(rel string) bool {
	if rel == `.` || rel == `` {
		return false
	}
	return f.excluded(rel)
}

// Include reports whether a file, given relative to the root with forward slashes, is interesting.
func (f *Filter) Include(rel string) bool {
	if f.excluded(rel) {
		return false
	}
	if len(f.includes) == 0 {
		return true
	}
	base := rel[strings.LastIndexByte(rel, '/')+1:]
	for _, g := range f.includes {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}

func (f *Filter) excluded(rel string) bool {
	for _, part := range strings.Split(rel, `/`) {
		for _, g := range f.excludes {
			if g.Match(part) {
				return true
			}
		}
	}
	return false
}

// Walk calls fn with the path, relative to root with forward slashes, of every included regular file under root.
// Directories and files below root that cannot be read are logged at debug level and skipped.
func Walk(ctx context.Context, root string, f *Filter, fn func(rel string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			hog.From(ctx).Debug().Err(err).Str(`path`, path).Msg(`skipping unreadable path`)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := Rel(root, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if f.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !f.Include(rel) {
			return nil
		}
		return fn(rel)
	})
}

// Rel returns path relative to root, with forward slashes.
func Rel(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return ``, err
	}
	return filepath.ToSlash(rel), nil
}

// sniffSize is how much of a file is checked for NUL bytes.
const sniffSize = 8 << 10

// IsText reports whether data looks like text: valid UTF-8 with no NUL byte near the start.
func IsText(data []byte) bool {
	head := data
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	return bytes.IndexByte(head, 0) < 0 && utf8.Valid(data)
}

// ReadText reads a file, returning false if it is not text.
func ReadText(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ``, false, err
	}
	if !IsText(data) {
		return ``, false, nil
	}
	return string(data), true, nil
}
