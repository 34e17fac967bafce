package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	khttp "github.com/km-arc/katapult/framework/http"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func TestResponse_JSON(t *testing.T) {
	rr := httptest.NewRecorder()
	khttp.NewResponse(rr).JSON(http.StatusOK, map[string]any{"login": true})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, true, decode(t, rr)["login"])
}

func TestResponse_Envelopes(t *testing.T) {
	rr := httptest.NewRecorder()
	khttp.NewResponse(rr).Success("x")
	assert.Equal(t, "x", decode(t, rr)["data"])

	rr = httptest.NewRecorder()
	khttp.NewResponse(rr).Created("y")
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	khttp.NewResponse(rr).NoContent()
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.Bytes())
}

func TestResponse_ErrorHelpers(t *testing.T) {
	cases := []struct {
		name string
		fn   func(*khttp.Response)
		code int
		msg  string
	}{
		{"unauthorized", func(r *khttp.Response) { r.Unauthorized() }, 401, "Unauthorized"},
		{"unauthorized custom", func(r *khttp.Response) { r.Unauthorized("No such user") }, 401, "No such user"},
		{"forbidden", func(r *khttp.Response) { r.Forbidden() }, 403, "Forbidden"},
		{"not found", func(r *khttp.Response) { r.NotFound() }, 404, "Not found"},
		{"server error", func(r *khttp.Response) { r.ServerError() }, 500, "Internal server error"},
		{"error", func(r *khttp.Response) { r.Error(400, "bad") }, 400, "bad"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.fn(khttp.NewResponse(rr))
			assert.Equal(t, tc.code, rr.Code)
			assert.Equal(t, tc.msg, decode(t, rr)["message"])
		})
	}
}

func TestResponse_Fail(t *testing.T) {
	rr := httptest.NewRecorder()
	khttp.NewResponse(rr).Fail(khttp.BadRequest("No such user"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "No such user", decode(t, rr)["message"])

	rr = httptest.NewRecorder()
	khttp.NewResponse(rr).Fail(errors.New("db is down"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Internal server error", decode(t, rr)["message"])
}

func TestResponse_Redirect(t *testing.T) {
	rr := httptest.NewRecorder()
	khttp.NewResponse(rr).RedirectTo("/login")

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestError_StatusOf(t *testing.T) {
	wrapped := errors.Join(errors.New("ctx"), khttp.Unauthorized("nope"))

	assert.Equal(t, http.StatusUnauthorized, khttp.StatusOf(wrapped))
	assert.Equal(t, http.StatusInternalServerError, khttp.StatusOf(errors.New("x")))
	assert.Equal(t, "Not Found", khttp.NewError(http.StatusNotFound, "").Message)
}
