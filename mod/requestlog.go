package mod

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/katapult/framework/module"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestInfo describes one finished request.
type RequestInfo struct {
	ID       string
	Method   string
	Path     string
	Pattern  string // matched route pattern, empty when no route matched
	Status   int
	Bytes    int
	Duration time.Duration
}

// Endpoint names the route that served the request, e.g. "GET /api/users".
func (i RequestInfo) Endpoint() string {
	pattern := i.Pattern
	if pattern == "" {
		pattern = "unmatched"
	}
	return i.Method + " " + pattern
}

// RequestLogger receives every finished request.
type RequestLogger interface {
	LogRequest(info RequestInfo)
}

// RequestLoggerFunc adapts a function to RequestLogger.
type RequestLoggerFunc func(info RequestInfo)

func (f RequestLoggerFunc) LogRequest(info RequestInfo) { f(info) }

// RequestLog fans a finished request out to any number of loggers. One
// instance is shared through the registry, so modules can add loggers to
// it while they are built.
type RequestLog struct {
	mu      sync.RWMutex
	loggers []RequestLogger
}

// NewRequestLog returns a log that starts with loggers.
func NewRequestLog(loggers ...RequestLogger) *RequestLog {
	return &RequestLog{loggers: loggers}
}

// Add appends loggers.
func (l *RequestLog) Add(loggers ...RequestLogger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loggers = append(l.loggers, loggers...)
}

// Len returns the number of loggers.
func (l *RequestLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.loggers)
}

// LogRequest implements RequestLogger.
func (l *RequestLog) LogRequest(info RequestInfo) {
	l.mu.RLock()
	loggers := l.loggers
	l.mu.RUnlock()
	for _, lg := range loggers {
		lg.LogRequest(info)
	}
}

// AccessLogger writes one line per request; 4xx and 5xx are warnings.
type AccessLogger struct {
	logger *zap.Logger
}

func NewAccessLogger(logger *zap.Logger) *AccessLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessLogger{logger: logger.Named("access")}
}

func (a *AccessLogger) LogRequest(info RequestInfo) {
	ms := "<1"
	if d := info.Duration.Milliseconds(); d >= 1 {
		ms = fmt.Sprint(d)
	}
	msg := fmt.Sprintf("(%sms) [%d] %s %s", ms, info.Status, info.Method, info.Path)
	fields := []zap.Field{zap.String("request_id", info.ID), zap.Int("bytes", info.Bytes)}
	if info.Status >= 400 {
		a.logger.Warn(msg, fields...)
		return
	}
	a.logger.Info(msg, fields...)
}

type requestIDKey struct{}

// RequestID returns the id RequestLogModule assigned to the request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestLogModule times each request and hands the result to the shared
// RequestLog.
type RequestLogModule struct {
	module.BaseModule
	log *RequestLog
}

func NewRequestLogModule(log *RequestLog) *RequestLogModule {
	return &RequestLogModule{log: log}
}

func (m *RequestLogModule) ConfigureApp(app *module.App) {
	app.Use(m.Middleware)
}

// Middleware assigns a request id, records status and size, and reports the
// route pattern chi matched.
func (m *RequestLogModule) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)

		// chi reuses a route context already present on the request, which
		// leaves the matched pattern readable here once it returns.
		rctx := chi.RouteContext(ctx)
		if rctx == nil {
			rctx = chi.NewRouteContext()
			ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
		}

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.log.LogRequest(RequestInfo{
			ID:       id,
			Method:   r.Method,
			Path:     r.URL.Path,
			Pattern:  rctx.RoutePattern(),
			Status:   status,
			Bytes:    ww.BytesWritten(),
			Duration: time.Since(start),
		})
	})
}
