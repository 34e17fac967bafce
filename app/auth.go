package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/km-arc/katapult/framework/endpoint"
	khttp "github.com/km-arc/katapult/framework/http"
	"github.com/km-arc/katapult/framework/module"
	"github.com/km-arc/katapult/framework/routing"
	"github.com/km-arc/katapult/framework/session"
)

// LoginPath is where guarded pages redirect when nobody is logged in.
const LoginPath = "/login"

// ── Passwords ────────────────────────────────────────────────────────────────

// Hash returns a bcrypt hash of pass.
func Hash(pass string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether creds name user and match its password hash.
func Verify(user *User, creds Creds) bool {
	return user.Name == creds.User && bcrypt.CompareHashAndPassword([]byte(user.Pass), []byte(creds.Pass)) == nil
}

// ── Session state ────────────────────────────────────────────────────────────

const authSessionKey = "auth_session"

// AuthUser is the logged in user as kept in the session.
type AuthUser struct {
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// AuthSession is the login state of one session.
type AuthSession struct {
	User *AuthUser
	s    *session.Session
}

// AuthSessionFrom reads the login state of the request's session.
func AuthSessionFrom(ctx context.Context) *AuthSession {
	s := session.From(ctx)
	a := &AuthSession{s: s}
	var u AuthUser
	if ok, err := s.Get(authSessionKey, &u); ok && err == nil {
		a.User = &u
	}
	return a
}

// Login records user as logged in under a fresh session id.
func (a *AuthSession) Login(user *User) error {
	a.s.Renew()
	a.User = &AuthUser{Name: user.Name, Role: user.Role}
	return a.s.Set(authSessionKey, a.User)
}

// Logout forgets the logged in user.
func (a *AuthSession) Logout() {
	a.User = nil
	a.s.Delete(authSessionKey)
}

func (a *AuthSession) IsLoggedIn() bool { return a.User != nil }

func (a *AuthSession) HasRole(role UserRole) bool { return a.User != nil && a.User.Role == role }

// ── Filters ──────────────────────────────────────────────────────────────────

// publicPrefixes never require a login.
var publicPrefixes = []string{
	"/login",
	"/css",
	"/js",
	"/favicon.ico",
	"/api/auth/login",
}

// IsPublic reports whether path is reachable without logging in.
func IsPublic(path string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RedirectIf redirects to target when cond holds.
func RedirectIf(target string, cond func(r *http.Request) bool) routing.Filter {
	return func(w http.ResponseWriter, r *http.Request) bool {
		if !cond(r) {
			return true
		}
		khttp.NewResponse(w).RedirectTo(target)
		return false
	}
}

// UnauthorizedIf answers 401 when cond holds.
func UnauthorizedIf(cond func(r *http.Request) bool) routing.Filter {
	return func(w http.ResponseWriter, r *http.Request) bool {
		if !cond(r) {
			return true
		}
		khttp.NewResponse(w).Unauthorized()
		return false
	}
}

// LoginFilter sends visitors who are not logged in to the login page,
// except on public paths.
var LoginFilter = RedirectIf(LoginPath, func(r *http.Request) bool {
	return !IsPublic(r.URL.Path) && !AuthSessionFrom(r.Context()).IsLoggedIn()
})

// ── Module ───────────────────────────────────────────────────────────────────

// AuthConfig controls registration and page guarding.
//
// GuardPathAccess redirects every non-public page to the login page until a
// user logs in. Leave it off for a single page app that only needs its API
// guarded.
type AuthConfig struct {
	AllowRegistration bool
	GuardPathAccess   bool
}

// Creds are the login credentials a client sends.
type Creds struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

type LoginResponse struct {
	Login bool     `json:"login"`
	User  UserInfo `json:"user"`
}

type changePasswordBody struct {
	OldPass string `json:"oldPass"`
	NewPass string `json:"newPass" validate:"required"`
}

type registerBody struct {
	Name string `json:"name"`
	Pass string `json:"pass"`
}

// AuthModule serves login, logout, password change and registration under
// /api/auth.
type AuthModule struct {
	module.BaseModule
	config AuthConfig
	store  UserStore
	proc   *endpoint.Processor
}

func NewAuthModule(config AuthConfig, store UserStore, proc *endpoint.Processor) *AuthModule {
	return &AuthModule{config: config, store: store, proc: proc}
}

func (m *AuthModule) ConfigureRouting(r *routing.Router) {
	r.Prefix("/api/auth", func(r *routing.Router) {
		r.Get("/login", m.proc.Serve(endpoint.Func(m.getLogin)))
		r.Post("/login", m.proc.Serve(endpoint.Body(m.login)))
		r.Get("/logout", m.proc.Serve(endpoint.Func(m.logout)))
		r.Post("/passwd", m.proc.Serve(endpoint.Body(m.changePassword)))
		if m.config.AllowRegistration {
			r.Post("/register", m.proc.Serve(endpoint.Body(m.register)))
		}
	})

	if m.config.GuardPathAccess {
		r.Before("/*", LoginFilter)
		r.Before(LoginPath, func(w http.ResponseWriter, r *http.Request) bool {
			AuthSessionFrom(r.Context()).Logout()
			return true
		})
		r.Get("/logout", func(w http.ResponseWriter, r *http.Request) {
			AuthSessionFrom(r.Context()).Logout()
			khttp.NewResponse(w).RedirectTo(LoginPath)
		})
	}
}

// getLogin returns the logged in user, or null.
func (m *AuthModule) getLogin(c *endpoint.Context) (any, error) {
	auth := AuthSessionFrom(c.Context())
	if !auth.IsLoggedIn() {
		return json.RawMessage("null"), nil
	}
	u, err := m.store.FindName(c.Context(), auth.User.Name)
	if errors.Is(err, ErrNoSuchUser) {
		return json.RawMessage("null"), nil
	}
	if err != nil {
		return nil, err
	}
	return u.Info(), nil
}

func (m *AuthModule) login(c *endpoint.Context, creds Creds) (any, error) {
	auth := AuthSessionFrom(c.Context())
	auth.Logout()

	u, err := m.store.FindName(c.Context(), creds.User)
	if errors.Is(err, ErrNoSuchUser) {
		return nil, khttp.Unauthorized("No such user")
	}
	if err != nil {
		return nil, err
	}
	if !Verify(u, creds) {
		return nil, khttp.Unauthorized("Invalid password")
	}
	if err := auth.Login(u); err != nil {
		return nil, err
	}
	c.Logger().Info("login", zap.String("user", u.Name))
	return LoginResponse{Login: true, User: u.Info()}, nil
}

func (m *AuthModule) logout(c *endpoint.Context) (any, error) {
	AuthSessionFrom(c.Context()).Logout()
	return nil, nil
}

func (m *AuthModule) changePassword(c *endpoint.Context, body changePasswordBody) (any, error) {
	auth := AuthSessionFrom(c.Context())
	if !auth.IsLoggedIn() {
		return nil, khttp.Unauthorized("")
	}
	u, err := m.store.FindName(c.Context(), auth.User.Name)
	if errors.Is(err, ErrNoSuchUser) {
		return nil, khttp.Unauthorized("")
	}
	if err != nil {
		return nil, err
	}
	if !Verify(u, Creds{User: u.Name, Pass: body.OldPass}) {
		return nil, khttp.Unauthorized("")
	}
	hash, err := Hash(body.NewPass)
	if err != nil {
		return nil, err
	}
	return nil, m.store.SetPassword(c.Context(), u.Name, hash)
}

func (m *AuthModule) register(c *endpoint.Context, body registerBody) (any, error) {
	if body.Name == "" {
		return nil, khttp.BadRequest("Invalid user name")
	}
	if body.Pass == "" {
		return nil, khttp.BadRequest("Invalid password")
	}
	hash, err := Hash(body.Pass)
	if err != nil {
		return nil, err
	}
	u, err := m.store.Create(c.Context(), User{Name: body.Name, Pass: hash, Role: RoleUser})
	if errors.Is(err, ErrUserExists) {
		return nil, khttp.BadRequest("User name exists")
	}
	if err != nil {
		return nil, err
	}
	return u.Info(), nil
}
