package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite keeps named scopes of workspace state in a SQLite database.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens, but does not initialize, the database at path.  Missing parent directories are created.
func OpenSQLite(path string) (*SQLite, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return nil, fmt.Errorf(`%w while creating directory for %v`, err, path)
	}
	db, err := sql.Open(`sqlite`, path)
	if err != nil {
		return nil, fmt.Errorf(`%w while opening %v`, err, path)
	}
	// sqlite serializes writers anyway; one connection avoids busy errors between our own goroutines.
	db.SetMaxOpenConns(1)
	return &SQLite{db: db, path: path}, nil
}

// Path returns the path of the database file.
func (s *SQLite) Path() string { return s.path }

// Init applies pragmas and creates the state table if it does not exist.
func (s *SQLite) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New(`nil store`)
	}
	for _, stmt := range []string{
		`PRAGMA journal_mode = DELETE;`,
		`PRAGMA synchronous = FULL;`,
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS state (
			scope TEXT NOT NULL,
			key TEXT NOT NULL,
			value BLOB NOT NULL,
			PRIMARY KEY (scope, key)
		);`,
	} {
		_, err := s.db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf(`%w while applying %q`, err, stmt)
		}
	}
	return nil
}

// Close releases the database.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Scope returns a Memento for the keys in one named scope, like "workspace" or "global".
func (s *SQLite) Scope(name string) Memento {
	return sqliteScope{db: s.db, scope: name}
}

type sqliteScope struct {
	db    *sql.DB
	scope string
}

func (s sqliteScope) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM state WHERE scope = ? AND key = ?;`, s.scope, key,
	).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf(`%w while reading %v/%v`, err, s.scope, key)
	}
	return value, true, nil
}

func (s sqliteScope) Update(ctx context.Context, key string, value []byte) error {
	var err error
	if value == nil {
		_, err = s.db.ExecContext(ctx, `DELETE FROM state WHERE scope = ? AND key = ?;`, s.scope, key)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO state(scope, key, value) VALUES (?, ?, ?)
			ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value;
		`, s.scope, key, value)
	}
	if err != nil {
		return fmt.Errorf(`%w while writing %v/%v`, err, s.scope, key)
	}
	return nil
}

func (s sqliteScope) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM state WHERE scope = ? ORDER BY key;`, s.scope)
	if err != nil {
		return nil, fmt.Errorf(`%w while listing %v`, err, s.scope)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var key string
		err = rows.Scan(&key)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
