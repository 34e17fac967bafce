package mod

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	khttp "github.com/km-arc/katapult/framework/http"
	"github.com/km-arc/katapult/framework/module"
)

// ErrorModule turns handler panics into a 500 and logs error responses:
// 500 and 401 as warnings, 404 as info.
type ErrorModule struct {
	module.BaseModule
	logger *zap.Logger
}

func NewErrorModule(logger *zap.Logger) *ErrorModule {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorModule{logger: logger.Named("errors")}
}

func (m *ErrorModule) ConfigureApp(app *module.App) {
	app.Use(m.Middleware)
}

func (m *ErrorModule) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				m.logger.Error("panic",
					zap.String("path", r.URL.Path),
					zap.Any("recovered", rec),
					zap.Stack("stack"),
				)
				if ww.Status() == 0 {
					khttp.NewResponse(ww).ServerError()
				}
			}
			m.report(r, ww.Status())
		}()
		next.ServeHTTP(ww, r)
	})
}

func (m *ErrorModule) report(r *http.Request, status int) {
	path := zap.String("path", r.URL.Path)
	switch status {
	case http.StatusInternalServerError:
		m.logger.Warn("Internal server error", path)
	case http.StatusUnauthorized:
		m.logger.Warn("Unauthorized", path)
	case http.StatusNotFound:
		m.logger.Info("Not found", path)
	}
}
