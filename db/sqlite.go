package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
)

// SqliteConfig selects the database file.
type SqliteConfig struct {
	File string
}

// SqliteDriver opens a file backed SQLite database.
//
// SQLite allows a single writer, so the pool is capped at one connection
// and transactions start IMMEDIATE, which serializes them.
type SqliteDriver struct {
	cfg SqliteConfig
}

// NewSqliteDriver validates cfg.
func NewSqliteDriver(cfg SqliteConfig) (*SqliteDriver, error) {
	if cfg.File == "" {
		return nil, errors.New("db: sqlite file is required")
	}
	return &SqliteDriver{cfg: cfg}, nil
}

func (d *SqliteDriver) Name() string { return "sqlite" }

// DSN returns the connection string.
func (d *SqliteDriver) DSN() string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_txlock", "immediate")
	return "file:" + d.cfg.File + "?" + q.Encode()
}

func (d *SqliteDriver) Open() (*sql.DB, error) {
	if dir := filepath.Dir(d.cfg.File); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	conn, err := sql.Open("sqlite3", d.DSN())
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}
