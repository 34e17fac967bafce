package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Store persists session data by id.
type Store interface {
	// Load returns the data for id. The boolean is false for unknown or
	// expired sessions.
	Load(id string) (*Data, bool, error)
	Save(id string, data *Data) error
	Delete(id string) error
}

// ── MemoryStore ──────────────────────────────────────────────────────────────

// MemoryStore keeps sessions in process memory. Entries expire after the
// timeout; zero keeps them forever.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore returns an in-memory store.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	expiry, cleanup := gocache.NoExpiration, time.Duration(0)
	if timeout > 0 {
		expiry, cleanup = timeout, timeout
	}
	return &MemoryStore{cache: gocache.New(expiry, cleanup)}
}

// Load implements Store.
func (m *MemoryStore) Load(id string) (*Data, bool, error) {
	v, ok := m.cache.Get(id)
	if !ok {
		return nil, false, nil
	}
	return v.(*Data).clone(), true, nil
}

// Save implements Store. Saving refreshes the expiry.
func (m *MemoryStore) Save(id string, data *Data) error {
	m.cache.SetDefault(id, data.clone())
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(id string) error {
	m.cache.Delete(id)
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int { return m.cache.ItemCount() }

// ── FileStore ────────────────────────────────────────────────────────────────

// FileStore keeps one JSON file per session in a directory, so sessions
// survive restarts.
type FileStore struct {
	dir     string
	timeout time.Duration
}

// NewFileStore creates dir if needed. Sessions older than timeout are
// treated as missing; zero disables expiry.
func NewFileStore(dir string, timeout time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session: create store dir: %w", err)
	}
	return &FileStore{dir: dir, timeout: timeout}, nil
}

// Dir returns the storage directory.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("session: invalid id %q", id)
	}
	return filepath.Join(f.dir, id+".json"), nil
}

// Load implements Store.
func (f *FileStore) Load(id string) (*Data, bool, error) {
	p, err := f.path(id)
	if err != nil {
		return nil, false, nil
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("session: read %s: %w", id, err)
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		// A corrupt file is as good as no session.
		_ = os.Remove(p)
		return nil, false, nil
	}
	if f.timeout > 0 && time.Since(data.UpdatedAt) > f.timeout {
		_ = os.Remove(p)
		return nil, false, nil
	}
	return &data, true, nil
}

// Save implements Store. The file is written to a temporary name first and
// renamed into place.
func (f *FileStore) Save(id string, data *Data) error {
	p, err := f.path(id)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", id, err)
	}
	return os.Rename(tmp, p)
}

// Delete implements Store.
func (f *FileStore) Delete(id string) error {
	p, err := f.path(id)
	if err != nil {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
