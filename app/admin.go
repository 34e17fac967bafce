package app

import (
	"errors"
	"net/http"

	"github.com/km-arc/katapult/framework/endpoint"
	khttp "github.com/km-arc/katapult/framework/http"
	"github.com/km-arc/katapult/framework/module"
	"github.com/km-arc/katapult/framework/routing"
)

// AdminConfig controls whether the admin pages themselves are guarded. The
// admin API is always restricted to admins.
type AdminConfig struct {
	GuardPages bool
}

type newUserBody struct {
	Name string   `json:"name" validate:"required"`
	Pass string   `json:"pass" validate:"required"`
	Role UserRole `json:"role" validate:"required,oneof=user admin guest"`
}

type removeUserBody struct {
	Name string `json:"name" validate:"required"`
}

type passwdBody struct {
	User string `json:"user" validate:"required"`
	Pass string `json:"pass" validate:"required"`
}

// AdminModule serves user management under /api/admin.
type AdminModule struct {
	module.BaseModule
	config AdminConfig
	store  UserStore
	proc   *endpoint.Processor
}

func NewAdminModule(config AdminConfig, store UserStore, proc *endpoint.Processor) *AdminModule {
	return &AdminModule{config: config, store: store, proc: proc}
}

func notAdmin(r *http.Request) bool {
	return !AuthSessionFrom(r.Context()).HasRole(RoleAdmin)
}

func (m *AdminModule) ConfigureRouting(r *routing.Router) {
	r.Prefix("/api/admin", func(r *routing.Router) {
		r.Get("/users", m.proc.Serve(endpoint.Func(m.users)))
		r.Post("/user", m.proc.Serve(endpoint.Body(m.newUser)))
		r.Delete("/user", m.proc.Serve(endpoint.Body(m.removeUser)))
		r.Post("/passwd", m.proc.Serve(endpoint.Body(m.passwd)))
	})

	r.Before("/api/admin/*", UnauthorizedIf(notAdmin))
	if m.config.GuardPages {
		toLogin := RedirectIf(LoginPath, notAdmin)
		r.Before("/admin", toLogin)
		r.Before("/admin/*", toLogin)
	}
}

func (m *AdminModule) users(c *endpoint.Context) (any, error) {
	users, err := m.store.List(c.Context())
	if err != nil {
		return nil, err
	}
	out := make([]UserInfo, len(users))
	for i, u := range users {
		out[i] = u.Info()
	}
	return out, nil
}

func (m *AdminModule) newUser(c *endpoint.Context, body newUserBody) (any, error) {
	hash, err := Hash(body.Pass)
	if err != nil {
		return nil, err
	}
	u, err := m.store.Create(c.Context(), User{Name: body.Name, Pass: hash, Role: body.Role})
	if errors.Is(err, ErrUserExists) {
		return nil, khttp.BadRequest("User name exists")
	}
	if err != nil {
		return nil, err
	}
	return endpoint.Created(u.Info()), nil
}

func (m *AdminModule) removeUser(c *endpoint.Context, body removeUserBody) (any, error) {
	return nil, noSuchUser(m.store.Remove(c.Context(), body.Name))
}

func (m *AdminModule) passwd(c *endpoint.Context, body passwdBody) (any, error) {
	hash, err := Hash(body.Pass)
	if err != nil {
		return nil, err
	}
	return nil, noSuchUser(m.store.SetPassword(c.Context(), body.User, hash))
}

// noSuchUser reports a missing user as a 400.
func noSuchUser(err error) error {
	if errors.Is(err, ErrNoSuchUser) {
		return khttp.BadRequest("No such user")
	}
	return err
}
