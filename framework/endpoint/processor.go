package endpoint

import (
	"net/http"

	"go.uber.org/zap"

	khttp "github.com/km-arc/katapult/framework/http"
)

// Processor runs handlers and writes their results. It is registered once
// and shared by every module that serves endpoints.
type Processor struct {
	logger *zap.Logger
}

// NewProcessor returns a processor that logs unexpected errors to logger.
func NewProcessor(logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{logger: logger.Named("endpoint")}
}

// Serve adapts h to an http.HandlerFunc.
//
// A non-nil result is written as JSON with status 200, or with the status of
// a Result. A *khttp.Error is written as {"message": ...} with its status;
// any other error is logged and reported as a 500.
func (p *Processor) Serve(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := NewContext(w, r, p.logger)
		out, err := h.Handle(c)
		if err != nil {
			if khttp.StatusOf(err) == http.StatusInternalServerError {
				p.logger.Error("endpoint failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
			}
			c.Response.Fail(err)
			return
		}
		switch v := out.(type) {
		case nil:
		case Result:
			writeResult(c, v)
		case *Result:
			if v != nil {
				writeResult(c, *v)
			}
		default:
			c.Response.JSON(http.StatusOK, v)
		}
	}
}

func writeResult(c *Context, res Result) {
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	if res.Body == nil {
		c.w.WriteHeader(status)
		return
	}
	c.Response.JSON(status, res.Body)
}

// Serve adapts h using a processor that logs to zap's global logger.
func Serve(h Handler) http.HandlerFunc {
	return NewProcessor(zap.L()).Serve(h)
}
