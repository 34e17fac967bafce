package mod

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	khttp "github.com/km-arc/katapult/framework/http"
	"github.com/km-arc/katapult/framework/module"
	"github.com/km-arc/katapult/framework/server"
)

// ── HTTP ─────────────────────────────────────────────────────────────────────

// HTTPSpec configures a plain HTTP listener. An empty Host binds every
// interface.
type HTTPSpec struct {
	Host string
	Port int
}

// HTTPModule adds an HTTP listener.
type HTTPModule struct {
	module.BaseModule
	spec HTTPSpec
}

func NewHTTPModule(spec HTTPSpec) *HTTPModule {
	return &HTTPModule{spec: spec}
}

// Addr is the listen address.
func (m *HTTPModule) Addr() string {
	return net.JoinHostPort(m.spec.Host, strconv.Itoa(m.spec.Port))
}

func (m *HTTPModule) ConfigureServer(srv *server.Server) {
	srv.Listen(m.Addr())
}

// ── HTTPS ────────────────────────────────────────────────────────────────────

// Certificate file names looked up in HTTPSSpec.DataDir, as written by
// Let's Encrypt clients.
const (
	CertFile = "fullchain.pem"
	KeyFile  = "privkey.pem"
)

// HTTPSSpec configures a TLS listener.
type HTTPSSpec struct {
	DataDir string
	Host    string
	Port    int
}

// HTTPSModule adds a TLS listener using the certificate chain and key in
// the data dir.
type HTTPSModule struct {
	module.BaseModule
	spec HTTPSSpec
	tls  *tls.Config
}

// NewHTTPSModule loads the key pair. A missing or invalid pair is an error,
// so the application fails to start rather than serve without TLS.
func NewHTTPSModule(spec HTTPSSpec) (*HTTPSModule, error) {
	if spec.DataDir == "" {
		return nil, errors.New("https: data dir is required")
	}
	cert, err := tls.LoadX509KeyPair(
		filepath.Join(spec.DataDir, CertFile),
		filepath.Join(spec.DataDir, KeyFile),
	)
	if err != nil {
		return nil, fmt.Errorf("https: load key pair: %w", err)
	}
	return &HTTPSModule{
		spec: spec,
		tls: &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		},
	}, nil
}

func (m *HTTPSModule) Addr() string {
	return net.JoinHostPort(m.spec.Host, strconv.Itoa(m.spec.Port))
}

// TLSConfig returns the listener's TLS configuration.
func (m *HTTPSModule) TLSConfig() *tls.Config { return m.tls }

func (m *HTTPSModule) ConfigureServer(srv *server.Server) {
	srv.ListenTLS(m.Addr(), m.tls)
}

// ── Redirect ─────────────────────────────────────────────────────────────────

// RedirectSpec redirects every request matching Predicate to the same URL
// on TargetScheme and TargetPort. Status defaults to 302.
type RedirectSpec struct {
	Predicate    func(r *http.Request) bool
	TargetPort   int
	TargetScheme string
	Status       int
}

// HTTPSRedirect sends plain requests arriving on httpPort to httpsPort.
func HTTPSRedirect(httpPort, httpsPort int) RedirectSpec {
	return RedirectSpec{
		Predicate: func(r *http.Request) bool {
			return khttp.NewRequest(r).Scheme() == "http" && LocalPort(r) == httpPort
		},
		TargetPort:   httpsPort,
		TargetScheme: "https",
	}
}

// LocalPort returns the port the request arrived on: the accepting
// listener's port when known, else the Host header port, else the scheme
// default.
func LocalPort(r *http.Request) int {
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(*net.TCPAddr); ok {
		return addr.Port
	}
	if _, port, err := net.SplitHostPort(r.Host); err == nil {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	if r.TLS != nil {
		return 443
	}
	return 80
}

// RedirectModule installs the redirect as application middleware.
type RedirectModule struct {
	module.BaseModule
	spec RedirectSpec
}

func NewRedirectModule(spec RedirectSpec) (*RedirectModule, error) {
	if spec.Predicate == nil {
		return nil, errors.New("redirect: predicate is required")
	}
	if spec.TargetScheme == "" {
		spec.TargetScheme = "http"
	}
	if spec.Status == 0 {
		spec.Status = http.StatusFound
	}
	return &RedirectModule{spec: spec}, nil
}

func (m *RedirectModule) ConfigureApp(app *module.App) {
	app.Use(m.Middleware)
}

// Middleware redirects matching requests and passes the rest through.
func (m *RedirectModule) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.spec.Predicate(r) {
			next.ServeHTTP(w, r)
			return
		}
		khttp.NewResponse(w).Redirect(m.spec.Status, m.Target(r))
	})
}

// Target builds the redirect URL for r.
func (m *RedirectModule) Target(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		host = h
	}
	if !isDefaultPort(m.spec.TargetScheme, m.spec.TargetPort) {
		host = net.JoinHostPort(host, strconv.Itoa(m.spec.TargetPort))
	}
	u := url.URL{
		Scheme:   m.spec.TargetScheme,
		Host:     host,
		Path:     r.URL.Path,
		RawPath:  r.URL.RawPath,
		RawQuery: r.URL.RawQuery,
	}
	return u.String()
}

func isDefaultPort(scheme string, port int) bool {
	return port == 0 || (scheme == "http" && port == 80) || (scheme == "https" && port == 443)
}
