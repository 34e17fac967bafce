// Package session keeps per-client state behind an opaque cookie. Values
// are stored as JSON so any Store can persist them.
package session

import (
	"context"
	"encoding/json"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Data is the persisted form of a session.
type Data struct {
	Values    map[string]json.RawMessage `json:"values"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

func (d *Data) clone() *Data {
	return &Data{Values: maps.Clone(d.Values), UpdatedAt: d.UpdatedAt}
}

// Session is the live session of one request.
type Session struct {
	mu          sync.Mutex
	id          string
	values      map[string]json.RawMessage
	isNew       bool
	dirty       bool
	invalidated bool

	// onCreate runs the first time a new or invalidated session is written to.
	onCreate func(id string)
	// onInvalidate runs when the session is invalidated.
	onInvalidate func(id string)
	// onRenew runs when the session moves to a new id.
	onRenew func(oldID, newID string, stored bool)
}

func newSession(id string, values map[string]json.RawMessage, isNew bool) *Session {
	if values == nil {
		values = make(map[string]json.RawMessage)
	}
	return &Session{id: id, values: values, isNew: isNew}
}

// ID returns the session id.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool { return s.isNew }

// Get decodes the value stored under key into dst. The boolean is false when
// the key is absent.
func (s *Session) Get(key string, dst any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.values[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

// Has reports whether key is set.
func (s *Session) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.values[key]
	return ok
}

// Set stores v under key.
func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key] = raw
	create := (s.isNew && !s.dirty || s.invalidated) && s.onCreate != nil
	s.invalidated = false
	s.dirty = true
	id := s.id
	s.mu.Unlock()
	if create {
		s.onCreate(id)
	}
	return nil
}

// Delete removes key.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// Invalidate drops every value and removes the session from its store. A
// later write starts a session under a fresh id.
func (s *Session) Invalidate() {
	s.mu.Lock()
	old := s.id
	s.id = uuid.NewString()
	s.values = make(map[string]json.RawMessage)
	s.invalidated = true
	s.dirty = false
	hook := s.onInvalidate
	s.mu.Unlock()
	if hook != nil {
		hook(old)
	}
}

// Renew moves the session to a fresh id, keeping its values. The old id is
// removed from the store and the cookie is reissued. Call it whenever the
// privilege level changes, e.g. on login.
func (s *Session) Renew() {
	s.mu.Lock()
	old := s.id
	s.id = uuid.NewString()
	stored := !s.isNew && !s.invalidated
	s.invalidated = false
	s.dirty = true
	id, hook := s.id, s.onRenew
	s.mu.Unlock()
	if hook != nil {
		hook(old, id, stored)
	}
}

func (s *Session) snapshot() (id string, data *Data, dirty, invalidated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, &Data{Values: maps.Clone(s.values), UpdatedAt: time.Now()}, s.dirty, s.invalidated
}

// ── Context ──────────────────────────────────────────────────────────────────

type ctxKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// From returns the session attached by Manager.Middleware. Without one it
// returns a detached session that is never persisted.
func From(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	return newSession("", nil, true)
}

// Attached reports whether ctx carries a managed session.
func Attached(ctx context.Context) bool {
	_, ok := ctx.Value(ctxKey{}).(*Session)
	return ok
}
