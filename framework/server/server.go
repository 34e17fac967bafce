// Package server owns the listening sockets of a Katapult application.
// Modules add listeners and lifecycle hooks to it while the application is
// being configured; the kernel then starts it once with the root handler.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoListeners is returned by Start when no module added a listener.
var ErrNoListeners = errors.New("server: no listeners configured")

// ErrStarted is returned when Start is called on a running server.
var ErrStarted = errors.New("server: already started")

// Hook runs when the server starts or stops.
type Hook func(ctx context.Context) error

type listenerSpec struct {
	addr string
	tls  *tls.Config
}

// Server collects listeners and start/stop hooks.
type Server struct {
	mu      sync.Mutex
	logger  *zap.Logger
	specs   []listenerSpec
	onStart []Hook
	onStop  []Hook

	servers []*http.Server
	addrs   []net.Addr
	wg      sync.WaitGroup
	running bool

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// New returns a server with no listeners.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:            logger.Named("server"),
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Listen adds a plain HTTP listener, e.g. ":8080".
func (s *Server) Listen(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, listenerSpec{addr: addr})
}

// ListenTLS adds an HTTPS listener.
func (s *Server) ListenTLS(addr string, cfg *tls.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = append(s.specs, listenerSpec{addr: addr, tls: cfg})
}

// OnStart adds a hook run once every listener is bound, before serving
// begins. A failing hook aborts Start.
func (s *Server) OnStart(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = append(s.onStart, h)
}

// OnStop adds a hook run after the listeners are closed.
func (s *Server) OnStop(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStop = append(s.onStop, h)
}

// Listeners returns the configured listener addresses.
func (s *Server) Listeners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.specs))
	for i, sp := range s.specs {
		out[i] = sp.addr
	}
	return out
}

// Addrs returns the bound addresses once Start has succeeded.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]net.Addr(nil), s.addrs...)
}

// Start binds every listener, runs the start hooks and serves handler on
// each listener in the background. If a listener fails to bind, the ones
// already opened are closed and no hook runs. If a start hook fails, the
// listeners are closed and the stop hooks run.
func (s *Server) Start(ctx context.Context, handler http.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrStarted
	}
	if len(s.specs) == 0 {
		return ErrNoListeners
	}

	var lc net.ListenConfig
	listeners := make([]net.Listener, 0, len(s.specs))
	closeAll := func() {
		for _, open := range listeners {
			_ = open.Close()
		}
	}
	for _, sp := range s.specs {
		ln, err := lc.Listen(ctx, "tcp", sp.addr)
		if err != nil {
			closeAll()
			return fmt.Errorf("server: listen %s: %w", sp.addr, err)
		}
		if sp.tls != nil {
			ln = tls.NewListener(ln, sp.tls)
		}
		listeners = append(listeners, ln)
	}

	for _, h := range s.onStart {
		if err := h(ctx); err != nil {
			closeAll()
			err = fmt.Errorf("server: start hook: %w", err)
			return errors.Join(err, s.runStop(context.WithoutCancel(ctx)))
		}
	}

	errLog, _ := zap.NewStdLogAt(s.logger, zap.WarnLevel)
	s.servers = s.servers[:0]
	s.addrs = s.addrs[:0]
	for i, ln := range listeners {
		srv := &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: s.ReadHeaderTimeout,
			ErrorLog:          errLog,
		}
		s.servers = append(s.servers, srv)
		s.addrs = append(s.addrs, ln.Addr())

		secure := s.specs[i].tls != nil
		s.logger.Info("listening", zap.Stringer("addr", ln.Addr()), zap.Bool("tls", secure))

		s.wg.Add(1)
		go func(ln net.Listener) {
			defer s.wg.Done()
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("serve failed", zap.Stringer("addr", ln.Addr()), zap.Error(err))
			}
		}(ln)
	}
	s.running = true
	return nil
}

// Shutdown gracefully stops every listener, waits for the serve loops and
// runs the stop hooks. It is a no-op on a server that is not running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok && s.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ShutdownTimeout)
		defer cancel()
	}

	var errs []error
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.wg.Wait()
	errs = append(errs, s.runStop(ctx))
	s.running = false
	s.logger.Info("stopped")
	return errors.Join(errs...)
}

// Release runs the stop hooks of a server that is not running, freeing
// what modules opened while being configured. It is a no-op on a running
// server; use Shutdown there. Stop hooks must tolerate running twice.
func (s *Server) Release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	return s.runStop(ctx)
}

func (s *Server) runStop(ctx context.Context) error {
	var errs []error
	for _, h := range s.onStop {
		if err := h(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server: stop hook: %w", err))
		}
	}
	return errors.Join(errs...)
}
