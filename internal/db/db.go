package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// TimeLayout is the UTC text layout every timestamp column uses. It matches
// SQLite's CURRENT_TIMESTAMP so defaults and application writes sort together.
const TimeLayout = "2006-01-02 15:04:05"

// Open opens (or creates) a SQLite database and applies pending migrations.
// Migrations are versioned .sql files under internal/db/migrations:
//
//	0001_name.up.sql / 0001_name.down.sql
//
// Foreign keys and the busy timeout are set through the DSN so that every pooled
// connection carries them, not only the first one.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		path = "app.db"
	}
	d, err := sql.Open("sqlite3", withPragmas(path))
	if err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if err := Migrate(d); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// FormatTime renders t in the column layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp column. RFC3339 is accepted for rows written by other tools.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(TimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", s)
}

//go:embed migrations/*.sql
var migrationsFS embed.FS

var migrationName = regexp.MustCompile(`^(\d{4})_([a-z0-9_]+)\.(up|down)\.sql$`)

type migration struct {
	version int
	name    string
	up      string
	down    string
}

// migrations returns the embedded scripts ordered by version.
func migrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	byVersion := map[int]*migration{}
	var order []int
	for _, e := range entries {
		parts := migrationName.FindStringSubmatch(e.Name())
		if parts == nil {
			continue
		}
		v, _ := strconv.Atoi(parts[1])
		m, ok := byVersion[v]
		if !ok {
			m = &migration{version: v, name: parts[2]}
			byVersion[v] = m
			order = append(order, v)
		} else if m.name != parts[2] {
			return nil, fmt.Errorf("migration %04d has two names: %s and %s", v, m.name, parts[2])
		}
		body, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return nil, err
		}
		if parts[3] == "up" {
			m.up = string(body)
		} else {
			m.down = string(body)
		}
	}
	// ReadDir sorts by file name, so order is already ascending.
	out := make([]migration, 0, len(order))
	for _, v := range order {
		m := byVersion[v]
		if strings.TrimSpace(m.up) == "" {
			return nil, fmt.Errorf("migration %04d_%s has no up script", v, m.name)
		}
		out = append(out, *m)
	}
	return out, nil
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
)`

// AppliedVersions lists applied migration versions in ascending order.
func AppliedVersions(d *sql.DB) ([]int, error) {
	return appliedVersions(context.Background(), d)
}

func appliedVersions(ctx context.Context, d *sql.DB) ([]int, error) {
	if _, err := d.ExecContext(ctx, migrationsTable); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	rows, err := d.QueryContext(ctx, `SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Migrate applies every embedded up script not yet recorded in schema_migrations.
func Migrate(d *sql.DB) error {
	return MigrateContext(context.Background(), d)
}

// MigrateContext is Migrate with a caller-supplied context. Each script runs in
// its own transaction together with its bookkeeping row.
func MigrateContext(ctx context.Context, d *sql.DB) error {
	all, err := migrations()
	if err != nil {
		return err
	}
	applied, err := appliedVersions(ctx, d)
	if err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	for _, m := range all {
		if done[m.version] {
			continue
		}
		err := inTx(ctx, d, m.up, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %04d_%s: %w", m.version, m.name, err)
		}
	}
	return nil
}

// RollbackLast runs the down script of the newest applied migration. It is a
// no-op on an empty database.
func RollbackLast(d *sql.DB) error {
	if d == nil {
		return errors.New("nil db")
	}
	ctx := context.Background()
	applied, err := appliedVersions(ctx, d)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	last := applied[len(applied)-1]
	all, err := migrations()
	if err != nil {
		return err
	}
	for _, m := range all {
		if m.version != last {
			continue
		}
		if strings.TrimSpace(m.down) == "" {
			break
		}
		return inTx(ctx, d, m.down, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, last)
			return err
		})
	}
	return fmt.Errorf("no down migration found for version %d", last)
}

func inTx(ctx context.Context, d *sql.DB, script string, after func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if err := after(tx); err != nil {
		return err
	}
	return tx.Commit()
}
