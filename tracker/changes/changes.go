// Package changes reports how the text files of a workspace changed since the last time anyone asked, by diffing
// them against a snapshot kept in global state.
package changes

import (
	"context"
	"maps"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/swdunlop/html-go/hog"
	"github.com/swdunlop/tracker-go/tracker/internal/files"
	"github.com/swdunlop/tracker-go/tracker/store"
)

// Messages in Report.Info.
const (
	InfoChanged     = `Changes found`
	InfoUnchanged   = `No changes since last check`
	InfoNoWorkspace = `No workspace folder open`
)

// Excludes are the directories never included in a snapshot.
var Excludes = []string{`.git`, `node_modules`}

// A Snapshot maps the path of each text file, relative to the workspace root with forward slashes, to its content.
type Snapshot map[string]string

// A Report summarizes the changes to a workspace.
type Report struct {
	Info string `json:"info"`
	Diff string `json:"diff"`
}

// Show compares the workspace at root with the snapshot stored in global, replaces that snapshot, and reports the
// differences.  An empty root means there is no workspace.
func Show(ctx context.Context, root string, global store.Memento) (Report, error) {
	if root == `` {
		return Report{Info: InfoNoWorkspace}, nil
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return Report{}, err
	}
	key := Key(root)
	var previous Snapshot
	_, err = store.GetJSON(ctx, global, key, &previous)
	if err != nil {
		hog.From(ctx).Warn().Err(err).Str(`key`, key).Msg(`ignoring unreadable snapshot`)
		previous = nil
	}
	current, err := Take(ctx, root)
	if err != nil {
		return Report{}, err
	}

	diffs := append(ComputeDiffs(previous, current), DeletedDiffs(previous, current)...)
	err = store.PutJSON(ctx, global, key, current)
	if err != nil {
		// the report is still useful, the next one will just repeat it.
		hog.From(ctx).Error().Err(err).Str(`key`, key).Msg(`could not save snapshot`)
	}
	if len(diffs) == 0 {
		return Report{Info: InfoUnchanged}, nil
	}
	header := `Changes since last check (workspace: ` + filepath.Base(root) + "):\n"
	return Report{Info: InfoChanged, Diff: header + strings.Join(diffs, "\n")}, nil
}

// Key returns the global state key of the snapshot for a workspace, its file URL.
func Key(root string) string {
	return (&url.URL{Scheme: `file`, Path: filepath.ToSlash(root)}).String()
}

// Take reads every text file under root.
func Take(ctx context.Context, root string) (Snapshot, error) {
	filter, err := files.NewFilter(nil, Excludes)
	if err != nil {
		return nil, err
	}
	snap := make(Snapshot)
	err = files.Walk(ctx, root, filter, func(rel string) error {
		text, ok, err := files.ReadText(filepath.Join(root, filepath.FromSlash(rel)))
		switch {
		case err != nil:
			hog.From(ctx).Debug().Err(err).Str(`path`, rel).Msg(`skipping unreadable file`)
		case ok:
			snap[rel] = text
		}
		return ctx.Err()
	})
	return snap, err
}

// ComputeDiffs returns a diff for every file in current that is new or differs from previous, ordered by path.
func ComputeDiffs(previous, current Snapshot) []string {
	var diffs []string
	for _, rel := range slices.Sorted(maps.Keys(current)) {
		text := current[rel]
		old, ok := previous[rel]
		switch {
		case !ok:
			diffs = append(diffs, `+++ `+rel+" (new file) +++\n"+FormatDiff(rel, ``, text))
		case old != text:
			diffs = append(diffs, FormatDiff(rel, old, text))
		}
	}
	return diffs
}

// DeletedDiffs returns a diff for every file in previous that is missing from current, ordered by path.
func DeletedDiffs(previous, current Snapshot) []string {
	var diffs []string
	for _, rel := range slices.Sorted(maps.Keys(previous)) {
		if _, ok := current[rel]; !ok {
			diffs = append(diffs, `--- `+rel+" (deleted) ---\n"+FormatDiff(rel, previous[rel], ``))
		}
	}
	return diffs
}

// FormatDiff returns a line diff of one file.  Each non-empty line is prefixed with "+ " if it was added, "- " if it
// was removed, or "= " if it is unchanged.
func FormatDiff(rel, before, after string) string {
	var buf strings.Builder
	buf.WriteString(`--- ` + rel + " ---\n")
	for _, d := range diffLines(before, after) {
		symbol := `=`
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			symbol = `+`
		case diffmatchpatch.DiffDelete:
			symbol = `-`
		}
		for _, line := range strings.Split(d.Text, "\n") {
			if line != `` {
				buf.WriteString(symbol + ` ` + line + "\n")
			}
		}
	}
	return buf.String()
}

func diffLines(before, after string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	return dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
}
