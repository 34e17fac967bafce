// Package app is a sample Katapult application: users stored in SQL, a
// session based login and an admin API, served next to a static single
// page app.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/katapult/db"
	"github.com/km-arc/katapult/framework/module"
)

// UserRole is the access role of a user.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
	RoleGuest UserRole = "guest"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleGuest:
		return true
	}
	return false
}

// User is a stored account. Pass holds the password hash.
type User struct {
	ID   int64
	Name string
	Pass string
	Role UserRole
}

// Info returns the fields safe to send to a client.
func (u *User) Info() UserInfo { return UserInfo{Name: u.Name, Role: u.Role} }

// UserInfo is the client facing view of a user.
type UserInfo struct {
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

var (
	ErrNoSuchUser = errors.New("no such user")
	ErrUserExists = errors.New("user name exists")
)

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, u User) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	FindName(ctx context.Context, name string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Remove(ctx context.Context, name string) error
	SetPassword(ctx context.Context, name, hash string) error
}

// ── SQL store ────────────────────────────────────────────────────────────────

// SQLUserStore keeps users in the "users" table.
type SQLUserStore struct {
	db *db.DB
}

func usersTable(driver string) db.Table {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "postgres" {
		id = "SERIAL PRIMARY KEY"
	}
	return db.Table{
		Name: "users",
		DDL: []string{`CREATE TABLE IF NOT EXISTS users (
			id   ` + id + `,
			name TEXT NOT NULL UNIQUE,
			pass TEXT NOT NULL,
			role VARCHAR(16) NOT NULL
		)`},
	}
}

// NewSQLUserStore creates the users table if needed.
func NewSQLUserStore(d *db.DB) (*SQLUserStore, error) {
	if err := d.Init(context.Background(), usersTable(d.Driver())); err != nil {
		return nil, err
	}
	return &SQLUserStore{db: d}, nil
}

func (s *SQLUserStore) Create(ctx context.Context, u User) (*User, error) {
	if _, err := s.FindName(ctx, u.Name); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrNoSuchUser) {
		return nil, err
	}
	q := s.db.Rebind(`INSERT INTO users (name, pass, role) VALUES (?, ?, ?) RETURNING id`)
	if err := s.db.Conn().QueryRowContext(ctx, q, u.Name, u.Pass, string(u.Role)).Scan(&u.ID); err != nil {
		return nil, fmt.Errorf("create user %q: %w", u.Name, err)
	}
	return &u, nil
}

func (s *SQLUserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.one(ctx, `SELECT id, name, pass, role FROM users WHERE id = ?`, id)
}

func (s *SQLUserStore) FindName(ctx context.Context, name string) (*User, error) {
	return s.one(ctx, `SELECT id, name, pass, role FROM users WHERE name = ?`, name)
}

func (s *SQLUserStore) one(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.db.Conn().QueryRowContext(ctx, s.db.Rebind(query), arg).Scan(&u.ID, &u.Name, &u.Pass, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSuchUser
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLUserStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT id, name, pass, role FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Pass, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *SQLUserStore) Remove(ctx context.Context, name string) error {
	return s.exec(ctx, `DELETE FROM users WHERE name = ?`, name)
}

func (s *SQLUserStore) SetPassword(ctx context.Context, name, hash string) error {
	return s.exec(ctx, `UPDATE users SET pass = ? WHERE name = ?`, hash, name)
}

// exec runs a single-row statement; no affected row means no such user.
func (s *SQLUserStore) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.Conn().ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoSuchUser
	}
	return nil
}

// ── Users module ─────────────────────────────────────────────────────────────

// DefaultAdmin and DefaultPassword seed the first account.
const (
	DefaultAdmin    = "admin"
	DefaultPassword = "pass"
)

// UsersSpec supplies the password hash function used for seeding.
type UsersSpec struct {
	Hash func(pass string) (string, error)
}

// UsersModule makes sure an admin account exists.
type UsersModule struct {
	module.BaseModule
	store UserStore
}

func NewUsersModule(spec UsersSpec, store UserStore, logger *zap.Logger) (*UsersModule, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	hash := spec.Hash
	if hash == nil {
		hash = Hash
	}

	ctx := context.Background()
	_, err := store.FindName(ctx, DefaultAdmin)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoSuchUser):
		pass, err := hash(DefaultPassword)
		if err != nil {
			return nil, err
		}
		admin, err := store.Create(ctx, User{Name: DefaultAdmin, Pass: pass, Role: RoleAdmin})
		if err != nil {
			return nil, err
		}
		logger.Named("users").Info("created user", zap.String("name", admin.Name))
	default:
		return nil, err
	}
	return &UsersModule{store: store}, nil
}

// Store returns the user store.
func (m *UsersModule) Store() UserStore { return m.store }
