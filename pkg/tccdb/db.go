// Package tccdb reads the macOS privacy (TCC) database read-only.
//
// The database records one row per decided (service, client) pair. Reading
// the system database, and on recent releases the user database too, needs
// full disk access; Open fails with a permission error otherwise.
package tccdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SystemPath is the machine-wide privacy database.
const SystemPath = "/Library/Application Support/com.apple.TCC/TCC.db"

// ErrNotFound is returned by Lookup when no decision is recorded.
var ErrNotFound = errors.New("tccdb: no record")

// DefaultUserPath returns the per-user privacy database under home.
func DefaultUserPath(home string) string {
	return filepath.Join(home, "Library", "Application Support", "com.apple.TCC", "TCC.db")
}

// Entry is one recorded decision.
type Entry struct {
	Service string
	// Client is a bundle id or an absolute executable path, per ClientType.
	Client     string
	ClientType int
	// AuthValue is 0 denied, 1 unknown, 2 allowed, 3 limited. Databases
	// from before auth_value existed report their allowed flag as 0 or 2.
	AuthValue    int
	AuthReason   int
	LastModified time.Time
}

// DB is an open, read-only privacy database.
type DB struct {
	db   *sql.DB
	path string
	// authExpr selects the auth value for the detected schema.
	authExpr   string
	reasonExpr string
}

// Open opens the database at path read-only and detects its schema.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open tcc db: %w", err)
	}
	dsn := (&url.URL{Scheme: "file", Path: path, RawQuery: "mode=ro"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open tcc db: %w", err)
	}
	d := &DB{db: db, path: path}
	if err := d.detectSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open tcc db %s: %w", path, err)
	}
	return d, nil
}

func (d *DB) detectSchema() error {
	rows, err := d.db.Query("PRAGMA table_info(access)")
	if err != nil {
		return err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			typ       string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dfltValue, &pk); err != nil {
			return err
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	switch {
	case cols["auth_value"]:
		d.authExpr = "auth_value"
	case cols["allowed"]:
		d.authExpr = "allowed * 2"
	default:
		return errors.New("access table not found or unrecognized schema")
	}
	d.reasonExpr = "0"
	if cols["auth_reason"] {
		d.reasonExpr = "auth_reason"
	}
	return nil
}

// Path returns the file the database was opened from.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) selectSQL(where string) string {
	return fmt.Sprintf(`SELECT service, client, client_type, %s, %s, COALESCE(last_modified, 0)
		FROM access %s ORDER BY service, client`, d.authExpr, d.reasonExpr, where)
}

// Entries returns the recorded decisions for service, or every decision
// when service is empty.
func (d *DB) Entries(ctx context.Context, service string) ([]Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if service == "" {
		rows, err = d.db.QueryContext(ctx, d.selectSQL(""))
	} else {
		rows, err = d.db.QueryContext(ctx, d.selectSQL("WHERE service = ?"), service)
	}
	if err != nil {
		return nil, fmt.Errorf("query access: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Lookup returns the decision recorded for client under service.
func (d *DB) Lookup(ctx context.Context, service, client string) (Entry, error) {
	row := d.db.QueryRowContext(ctx, d.selectSQL("WHERE service = ? AND client = ?"), service, client)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e        Entry
		modified int64
	)
	if err := s.Scan(&e.Service, &e.Client, &e.ClientType, &e.AuthValue, &e.AuthReason, &modified); err != nil {
		return Entry{}, err
	}
	if modified > 0 {
		e.LastModified = time.Unix(modified, 0).UTC()
	}
	return e, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Set consults several databases in order, typically the user database
// before the system one.
type Set []*DB

// OpenSet opens every path that can be opened and returns the errors of
// those that could not. It fails only when none opened.
func OpenSet(paths ...string) (Set, error) {
	var (
		set  Set
		errs []error
	)
	for _, p := range paths {
		db, err := Open(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set = append(set, db)
	}
	if len(set) == 0 {
		if len(errs) == 0 {
			return nil, errors.New("tccdb: no database paths")
		}
		return nil, errors.Join(errs...)
	}
	return set, nil
}

// Lookup returns the first recorded decision across the set.
func (s Set) Lookup(ctx context.Context, service, client string) (Entry, error) {
	for _, db := range s {
		e, err := db.Lookup(ctx, service, client)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return e, err
	}
	return Entry{}, ErrNotFound
}

// Entries concatenates the decisions of every database in the set.
func (s Set) Entries(ctx context.Context, service string) ([]Entry, error) {
	var out []Entry
	for _, db := range s {
		entries, err := db.Entries(ctx, service)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", db.Path(), err)
		}
		out = append(out, entries...)
	}
	return out, nil
}

// Close closes every database in the set.
func (s Set) Close() error {
	var errs []error
	for _, db := range s {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
