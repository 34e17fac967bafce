package mod

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/katapult/framework/module"
	"github.com/km-arc/katapult/framework/session"
)

// SessionSpec selects the session store. With a DataDir, sessions are kept
// as files under DataDir/sessions; otherwise they live in memory. A zero
// TimeoutSeconds never expires them. Secure marks the cookie Secure and is
// set whenever the application serves HTTPS.
type SessionSpec struct {
	DataDir        string
	TimeoutSeconds int
	Secure         bool
}

// Empty reports whether every field is zero.
func (s SessionSpec) Empty() bool { return s == SessionSpec{} }

// Timeout returns TimeoutSeconds as a duration.
func (s SessionSpec) Timeout() time.Duration { return time.Duration(s.TimeoutSeconds) * time.Second }

// SessionModule attaches a session to every request.
type SessionModule struct {
	module.BaseModule
	manager *session.Manager
}

func NewSessionModule(spec SessionSpec, logger *zap.Logger) (*SessionModule, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var store session.Store
	if spec.DataDir != "" {
		dir := filepath.Join(spec.DataDir, "sessions")
		fs, err := session.NewFileStore(dir, spec.Timeout())
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		logger.Info("saving sessions", zap.String("dir", dir))
		store = fs
	} else {
		store = session.NewMemoryStore(spec.Timeout())
	}
	if spec.TimeoutSeconds > 0 {
		logger.Info("session timeout", zap.Int("seconds", spec.TimeoutSeconds))
	}
	manager := session.NewManager(store, spec.Timeout(), logger)
	manager.Secure = spec.Secure
	return &SessionModule{manager: manager}, nil
}

// Manager returns the session manager.
func (m *SessionModule) Manager() *session.Manager { return m.manager }

func (m *SessionModule) ConfigureApp(app *module.App) {
	app.Use(m.manager.Middleware)
}
