package database

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
	"hooklens/internal/platform/config"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB carries the driver name next to the pool so repositories can write
// queries once with `?` placeholders.
type DB struct {
	*sql.DB
	Driver string
}

func Wrap(db *sql.DB, driver string) *DB {
	return &DB{DB: db, Driver: driver}
}

func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	driver, dsn, err := resolveDSN(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return Wrap(db, driver), nil
}

func resolveDSN(url string) (driver, dsn string, err error) {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DriverPostgres, url, nil
	}

	path := strings.TrimPrefix(url, "file:")
	if path == "" {
		return "", "", fmt.Errorf("database url is empty")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", "", fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	// Writers wait on each other instead of failing with SQLITE_BUSY.
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn = path + sep + "_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL&_txlock=immediate"
	return DriverSQLite, dsn, nil
}

func (d *DB) IsPostgres() bool {
	return d.Driver == DriverPostgres
}

// Rebind rewrites `?` placeholders to `$n` for Postgres. Quoted literals
// are left alone.
func (d *DB) Rebind(query string) string {
	if !d.IsPostgres() {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
