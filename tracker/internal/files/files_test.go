package files

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		`main.go`, `README.md`, `pkg/a.go`, `.git/config`, `node_modules/x/index.js`, `pkg/.hidden`, `vendor/y.go`,
	} {
		write(t, root, rel, `x`)
	}

	for _, tc := range []struct {
		name               string
		includes, excludes []string
		want               []string
	}{
		{`defaults`, nil, nil, []string{`README.md`, `main.go`, `pkg/a.go`}},
		{`includes`, []string{`*.go`}, nil, []string{`main.go`, `pkg/a.go`}},
		{`excludes`, nil, []string{`pkg`}, []string{`.git/config`, `README.md`, `main.go`, `node_modules/x/index.js`, `vendor/y.go`}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, err := NewFilter(tc.includes, tc.excludes)
			if err != nil {
				t.Fatalf("filter: %v", err)
			}
			var got []string
			err = Walk(context.Background(), root, f, func(rel string) error {
				got = append(got, rel)
				return nil
			})
			if err != nil {
				t.Fatalf("walk: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestWalkSkipsUnreadable(t *testing.T) {
	if runtime.GOOS == `windows` || os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced")
	}
	root := t.TempDir()
	write(t, root, `a.go`, `x`)
	write(t, root, `locked/b.go`, `x`)
	write(t, root, `z.go`, `x`)
	locked := filepath.Join(root, `locked`)
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	f, err := NewFilter(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	err = Walk(context.Background(), root, f, func(rel string) error {
		got = append(got, rel)
		return nil
	})
	if err != nil {
		t.Fatalf("expected the unreadable directory to be skipped, got %v", err)
	}
	if want := []string{`a.go`, `z.go`}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	f, err := NewFilter(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = Walk(context.Background(), filepath.Join(t.TempDir(), `missing`), f, func(string) error { return nil })
	if !os.IsNotExist(err) {
		t.Fatalf("expected a missing root to fail, got %v", err)
	}
}

func TestIsText(t *testing.T) {
	for _, tc := range []struct {
		data []byte
		want bool
	}{
		{[]byte("hello\n"), true},
		{[]byte{}, true},
		{[]byte("a\x00b"), false},
		{[]byte{0xff, 0xfe}, false},
	} {
		if got := IsText(tc.data); got != tc.want {
			t.Errorf("IsText(%q) = %v", tc.data, got)
		}
	}
}
