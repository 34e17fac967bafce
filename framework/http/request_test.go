package http_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	khttp "github.com/km-arc/katapult/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newJSONRequest(t *testing.T, body string) *khttp.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return khttp.NewRequest(req)
}

func newFormRequest(t *testing.T, values url.Values) *khttp.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return khttp.NewRequest(req)
}

type loginBody struct {
	User string `json:"user" validate:"required"`
	Pass string `json:"pass" validate:"required,min=3"`
}

// ── Bind ─────────────────────────────────────────────────────────────────────

func TestRequest_BindJSON(t *testing.T) {
	var body loginBody
	require.NoError(t, newJSONRequest(t, `{"user":"admin","pass":"pass"}`).Bind(&body))

	assert.Equal(t, loginBody{User: "admin", Pass: "pass"}, body)
}

func TestRequest_BindJSON_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":     ``,
		"malformed": `{"user":`,
		"type":      `{"user": 12}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			var body loginBody
			err := newJSONRequest(t, raw).Bind(&body)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, khttp.StatusOf(err))
		})
	}
}

func TestRequest_BindJSON_TooLarge(t *testing.T) {
	huge := `{"user":"` + strings.Repeat("a", 1<<20) + `"}`
	var body loginBody
	err := newJSONRequest(t, huge).Bind(&body)

	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, khttp.StatusOf(err))
	assert.Equal(t, "Request body too large", err.Error())
}

func TestRequest_BindForm(t *testing.T) {
	var body loginBody
	err := newFormRequest(t, url.Values{"user": {"admin"}, "pass": {"pass"}}).Bind(&body)

	require.NoError(t, err)
	assert.Equal(t, "admin", body.User)
}

func TestRequest_BindValid(t *testing.T) {
	var body loginBody
	err := newJSONRequest(t, `{"user":"admin","pass":"x"}`).BindValid(&body)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, khttp.StatusOf(err))
	assert.Contains(t, err.Error(), "pass failed min")
}

// ── Input helpers ────────────────────────────────────────────────────────────

func TestRequest_QueryAndInput(t *testing.T) {
	req := khttp.NewRequest(httptest.NewRequest(http.MethodGet, "/?page=2", nil))

	assert.Equal(t, "2", req.Query("page"))
	assert.Equal(t, "10", req.Query("size", "10"))
	assert.Equal(t, "2", req.Input("page"))
	assert.Equal(t, "x", req.Input("missing", "x"))
}

func TestRequest_BearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, khttp.NewRequest(r).BearerToken())

	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", khttp.NewRequest(r).BearerToken())
}

func TestRequest_IP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", khttp.NewRequest(r).IP())

	r.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", khttp.NewRequest(r).IP())
}

func TestRequest_Flags(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	req := khttp.NewRequest(r)
	assert.False(t, req.IsJSON())
	assert.False(t, req.IsAjax())
	assert.Equal(t, "http", req.Scheme())
	assert.Equal(t, http.MethodGet, req.Method())
	assert.Equal(t, "/api/auth/login", req.Path())

	r.Header.Set("Accept", "application/json")
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	r.TLS = &tls.ConnectionState{}
	assert.True(t, req.IsJSON())
	assert.True(t, req.IsAjax())
	assert.Equal(t, "https", req.Scheme())
}
