// Package db opens the application database through a pluggable Driver and
// exposes it to components that need storage.
//
// Components that create tables depend on *DB so the connection is open
// before they run:
//
//	container.New1E(db.NewDB)                  // *DB needs a Driver
//	container.New1E[UserStore](NewSQLUserStore) // needs *DB
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/km-arc/katapult/framework/server"
)

// Driver opens a database connection pool.
type Driver interface {
	Name() string
	Open() (*sql.DB, error)
}

// Table is the DDL for one table. Statements run in order.
type Table struct {
	Name string
	DDL  []string
}

// DB is an open, pinged connection pool.
type DB struct {
	conn   *sql.DB
	driver string
}

// ErrClosed is returned by Init after Close.
var ErrClosed = errors.New("db: closed")

// NewDB opens driver and checks the connection.
func NewDB(driver Driver) (*DB, error) {
	if driver == nil {
		return nil, errors.New("db: nil driver")
	}
	conn, err := driver.Open()
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", driver.Name(), err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("db: ping %s: %w", driver.Name(), err)
	}
	return &DB{conn: conn, driver: driver.Name()}, nil
}

// Driver returns the driver name, "sqlite" or "postgres".
func (d *DB) Driver() string { return d.driver }

// Conn returns the underlying pool.
func (d *DB) Conn() *sql.DB { return d.conn }

// Init creates t if it does not exist. DDL should use IF NOT EXISTS.
func (d *DB) Init(ctx context.Context, t Table) error {
	if d.conn == nil {
		return ErrClosed
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: init %s: %w", t.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range t.DDL {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: init %s: %w", t.Name, err)
		}
	}
	return tx.Commit()
}

// Rebind rewrites "?" placeholders to "$n" for postgres.
func (d *DB) Rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// ConfigureServer closes the pool once the server has stopped.
func (d *DB) ConfigureServer(srv *server.Server) {
	srv.OnStop(func(context.Context) error { return d.Close() })
}

// Close closes the pool. Calling it twice is safe.
func (d *DB) Close() error {
	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
