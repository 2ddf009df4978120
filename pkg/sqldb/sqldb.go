package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config is read with envconfig under the DB_ prefix.
type Config struct {
	Driver          string        `split_words:"true" default:"sqlite3"`
	DSN             string        `split_words:"true" default:"file:data/reportbot.db?_journal_mode=WAL&_busy_timeout=5000"`
	MaxOpenConns    int           `split_words:"true" default:"10"`
	ConnMaxLifetime time.Duration `split_words:"true" default:"5m"`
}

// DB is a pooled handle plus the dialect needed to write portable queries.
// It is safe for concurrent use.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open opens the pool and verifies connectivity.
func (c *Config) Open(ctx context.Context) (*DB, error) {
	d, err := DialectFor(c.Driver)
	if err != nil {
		return nil, err
	}
	if d.Name == DriverSQLite {
		if err := ensureDir(c.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Driver, err)
	}
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", c.Driver, err)
	}
	return &DB{DB: db, Dialect: d}, nil
}

// Wrap adapts an already opened *sql.DB.
func Wrap(db *sql.DB, driver string) (*DB, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &DB{DB: db, Dialect: d}, nil
}

// Dialect captures the few places SQLite and PostgreSQL differ.
type Dialect struct {
	Name string
}

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		return Dialect{Name: driver}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// Rebind rewrites '?' placeholders into the driver's native form.
func (d Dialect) Rebind(query string) string {
	if d.Name != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GroupConcat aggregates expr into a ", "-separated string.
func (d Dialect) GroupConcat(expr string) string {
	if d.Name == DriverPostgres {
		return fmt.Sprintf("string_agg(%s, ', ')", expr)
	}
	return fmt.Sprintf("group_concat(%s, ', ')", expr)
}

// BlobType is the column type for binary payloads.
func (d Dialect) BlobType() string {
	if d.Name == DriverPostgres {
		return "BYTEA"
	}
	return "BLOB"
}

// RealType is the column type for floating point scores.
func (d Dialect) RealType() string {
	if d.Name == DriverPostgres {
		return "DOUBLE PRECISION"
	}
	return "REAL"
}

func ensureDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	return nil
}
