package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName is the session cookie.
const CookieName = "katapult_session"

// Manager loads the session for each request and persists it afterwards.
type Manager struct {
	store   Store
	timeout time.Duration
	logger  *zap.Logger

	// Secure marks the cookie Secure.
	Secure bool
}

// NewManager returns a manager backed by store. timeout sets the cookie
// lifetime; zero makes it a browser-session cookie.
func NewManager(store Store, timeout time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, timeout: timeout, logger: logger.Named("session")}
}

// Store returns the backing store.
func (m *Manager) Store() Store { return m.store }

func (m *Manager) cookie(w http.ResponseWriter, id string, expire bool) {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case expire:
		c.Value = ""
		c.MaxAge = -1
	case m.timeout > 0:
		c.MaxAge = int(m.timeout / time.Second)
	}
	http.SetCookie(w, c)
}

func (m *Manager) load(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return newSession(uuid.NewString(), nil, true)
	}
	data, ok, err := m.store.Load(c.Value)
	if err != nil {
		m.logger.Warn("load failed", zap.Error(err))
	}
	if !ok {
		return newSession(uuid.NewString(), nil, true)
	}
	return newSession(c.Value, data.Values, false)
}

// Middleware attaches the session to the request context. A new session
// gets its cookie only once something is written to it; existing sessions
// are saved after every request to refresh their expiry.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.load(r)
		s.onCreate = func(id string) { m.cookie(w, id, false) }
		s.onInvalidate = func(id string) {
			if err := m.store.Delete(id); err != nil {
				m.logger.Warn("delete failed", zap.Error(err))
			}
			m.cookie(w, "", true)
		}
		s.onRenew = func(oldID, newID string, stored bool) {
			if stored {
				if err := m.store.Delete(oldID); err != nil {
					m.logger.Warn("delete failed", zap.Error(err))
				}
			}
			m.cookie(w, newID, false)
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))

		id, data, dirty, invalidated := s.snapshot()
		if invalidated || (s.isNew && !dirty) {
			return
		}
		if err := m.store.Save(id, data); err != nil {
			m.logger.Error("save failed", zap.Error(err))
		}
	})
}
