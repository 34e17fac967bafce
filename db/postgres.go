package db

import (
	"database/sql"
	"errors"
	"net/url"
)

// PostgresConfig holds the connection parameters.
type PostgresConfig struct {
	Host string
	Name string
	User string
	Pass string

	// SSLMode is passed through to lib/pq; empty keeps its default.
	SSLMode string
}

// PostgresDriver connects through lib/pq.
type PostgresDriver struct {
	cfg PostgresConfig
}

// NewPostgresDriver checks that host and database name are set.
func NewPostgresDriver(cfg PostgresConfig) (*PostgresDriver, error) {
	if cfg.Host == "" || cfg.Name == "" {
		return nil, errors.New("db: postgres host and name are required")
	}
	return &PostgresDriver{cfg: cfg}, nil
}

func (d *PostgresDriver) Name() string { return "postgres" }

// DSN returns a postgres:// URL.
func (d *PostgresDriver) DSN() string {
	u := url.URL{Scheme: "postgres", Host: d.cfg.Host, Path: "/" + d.cfg.Name}
	switch {
	case d.cfg.User != "" && d.cfg.Pass != "":
		u.User = url.UserPassword(d.cfg.User, d.cfg.Pass)
	case d.cfg.User != "":
		u.User = url.User(d.cfg.User)
	}
	if d.cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.cfg.SSLMode}}.Encode()
	}
	return u.String()
}

func (d *PostgresDriver) Open() (*sql.DB, error) {
	return sql.Open("postgres", d.DSN())
}
