package endpoint_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/km-arc/katapult/framework/endpoint"
	khttp "github.com/km-arc/katapult/framework/http"
)

type credentials struct {
	Name string `json:"name" validate:"required"`
	Pass string `json:"pass" validate:"required"`
}

func serve(t *testing.T, p *endpoint.Processor, h endpoint.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	p.Serve(h).ServeHTTP(rr, req)
	return rr
}

func TestProcessor_WritesResultAsJSON(t *testing.T) {
	p := endpoint.NewProcessor(nil)
	h := endpoint.Func(func(*endpoint.Context) (any, error) {
		return map[string]any{"login": true}, nil
	})

	rr := serve(t, p, h, "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"login":true}`, rr.Body.String())
}

func TestProcessor_NilResultWritesNothing(t *testing.T) {
	p := endpoint.NewProcessor(nil)
	h := endpoint.Func(func(c *endpoint.Context) (any, error) {
		c.Response.RedirectTo("/login")
		return nil, nil
	})

	rr := serve(t, p, h, "")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestProcessor_Result(t *testing.T) {
	p := endpoint.NewProcessor(nil)

	rr := serve(t, p, endpoint.Func(func(*endpoint.Context) (any, error) {
		return endpoint.Created(map[string]string{"name": "bob"}), nil
	}), "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(t, p, endpoint.Func(func(*endpoint.Context) (any, error) {
		return &endpoint.Result{Status: http.StatusAccepted}, nil
	}), "")
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestProcessor_HTTPErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	p := endpoint.NewProcessor(zap.New(core))

	rr := serve(t, p, endpoint.Func(func(*endpoint.Context) (any, error) {
		return nil, khttp.Unauthorized("No such user")
	}), "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"message":"No such user"}`, rr.Body.String())
	assert.Zero(t, logs.Len(), "client errors are not logged")

	rr = serve(t, p, endpoint.Func(func(*endpoint.Context) (any, error) {
		return nil, errors.New("disk full")
	}), "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, rr.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "endpoint failed", logs.All()[0].Message)
}

func TestBody_DecodesAndValidates(t *testing.T) {
	p := endpoint.NewProcessor(nil)
	h := endpoint.Body(func(_ *endpoint.Context, b credentials) (any, error) {
		return map[string]string{"hello": b.Name}, nil
	})

	rr := serve(t, p, h, `{"name":"bob","pass":"secret"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"hello":"bob"}`, rr.Body.String())

	rr = serve(t, p, h, `{"name":"bob"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "pass failed required")

	rr = serve(t, p, h, `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestContext_Session(t *testing.T) {
	p := endpoint.NewProcessor(nil)
	h := endpoint.Func(func(c *endpoint.Context) (any, error) {
		require.NotNil(t, c.Session())
		require.NotNil(t, c.Logger())
		assert.Equal(t, "/", c.Raw().URL.Path)
		return nil, nil
	})

	serve(t, p, h, "")
}
