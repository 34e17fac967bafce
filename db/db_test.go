package db

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/katapult/framework/server"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	drv, err := NewSqliteDriver(SqliteConfig{File: filepath.Join(t.TempDir(), "nested", "test.db")})
	require.NoError(t, err)
	d, err := NewDB(drv)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

var notes = Table{
	Name: "notes",
	DDL: []string{
		`CREATE TABLE IF NOT EXISTS notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)`,
		`CREATE INDEX IF NOT EXISTS notes_body ON notes (body)`,
	},
}

func TestSqlite_InitAndQuery(t *testing.T) {
	d := openTemp(t)
	ctx := context.Background()
	assert.Equal(t, "sqlite", d.Driver())

	require.NoError(t, d.Init(ctx, notes))
	require.NoError(t, d.Init(ctx, notes), "init is idempotent")

	_, err := d.Conn().ExecContext(ctx, d.Rebind(`INSERT INTO notes (body) VALUES (?)`), "hello")
	require.NoError(t, err)

	var body string
	require.NoError(t, d.Conn().QueryRowContext(ctx, `SELECT body FROM notes WHERE id = 1`).Scan(&body))
	assert.Equal(t, "hello", body)
}

func TestInit_BadDDLRollsBack(t *testing.T) {
	d := openTemp(t)
	bad := Table{Name: "bad", DDL: []string{
		`CREATE TABLE bad (id INTEGER)`,
		`THIS IS NOT SQL`,
	}}
	err := d.Init(context.Background(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: init bad")

	var n int
	require.NoError(t, d.Conn().QueryRow(`SELECT count(*) FROM sqlite_master WHERE name = 'bad'`).Scan(&n))
	assert.Zero(t, n)
}

func TestClose(t *testing.T) {
	d := openTemp(t)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Init(context.Background(), notes), ErrClosed)
}

type brokenDriver struct{}

func (brokenDriver) Name() string { return "broken" }

func (brokenDriver) Open() (*sql.DB, error) { return nil, errors.New("no route") }

func TestNewDB_OpenError(t *testing.T) {
	_, err := NewDB(brokenDriver{})
	assert.EqualError(t, err, "db: open broken: no route")

	_, err = NewDB(nil)
	assert.Error(t, err)
}

func TestDriverConfigs(t *testing.T) {
	_, err := NewSqliteDriver(SqliteConfig{})
	assert.Error(t, err)

	sq, err := NewSqliteDriver(SqliteConfig{File: "data/k.db"})
	require.NoError(t, err)
	assert.Contains(t, sq.DSN(), "file:data/k.db?")
	assert.Contains(t, sq.DSN(), "_txlock=immediate")

	_, err = NewPostgresDriver(PostgresConfig{Host: "db"})
	assert.Error(t, err)

	pg, err := NewPostgresDriver(PostgresConfig{Host: "db:5432", Name: "app", User: "u", Pass: "p w"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p%20w@db:5432/app", pg.DSN())
	assert.Equal(t, "postgres", pg.Name())

	pg, _ = NewPostgresDriver(PostgresConfig{Host: "db", Name: "app", SSLMode: "disable"})
	assert.Equal(t, "postgres://db/app?sslmode=disable", pg.DSN())
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: "postgres"}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	sq := &DB{driver: "sqlite"}
	assert.Equal(t, "a = ?", sq.Rebind("a = ?"))
}

func TestDB_ClosesWithServer(t *testing.T) {
	d := openTemp(t)
	srv := server.New(nil)
	srv.Listen("127.0.0.1:0")
	d.ConfigureServer(srv)

	require.NoError(t, srv.Start(context.Background(), http.NotFoundHandler()))
	require.NoError(t, srv.Shutdown(context.Background()))
	assert.Nil(t, d.Conn())
}
