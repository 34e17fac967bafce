package http

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// maxBody caps JSON request bodies.
const maxBody = 1 << 20 // 1 MB

// Request wraps *http.Request with small input helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes the request body into v. JSON bodies map via `json:"name"`;
// url-encoded forms are mapped through the same tags. A malformed or empty
// body is a 400 *Error.
func (req *Request) Bind(v any) error {
	if strings.Contains(req.ContentType(), "application/x-www-form-urlencoded") {
		if err := req.raw.ParseForm(); err != nil {
			return BadRequest("Invalid form body")
		}
		return bindForm(req.raw.PostForm, v)
	}
	return req.bindJSON(v)
}

// BindValid is Bind followed by Validate.
func (req *Request) BindValid(v any) error {
	if err := req.Bind(v); err != nil {
		return err
	}
	return Validate(v)
}

func (req *Request) bindJSON(v any) error {
	if req.raw.Body == nil {
		return BadRequest("Empty request body")
	}
	defer req.raw.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(nil, req.raw.Body, maxBody))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return TooLarge("Request body too large")
		}
		return BadRequest("Unreadable request body")
	}
	if len(body) == 0 {
		return BadRequest("Empty request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var syn *json.SyntaxError
		var typ *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syn):
			return BadRequest("Malformed JSON body")
		case errors.As(err, &typ):
			return BadRequest("Invalid value for " + typ.Field)
		}
		return BadRequest(err.Error())
	}
	return nil
}

// bindForm maps single-valued form fields onto v through a JSON round-trip.
func bindForm(values map[string][]string, v any) error {
	m := make(map[string]any, len(values))
	for k, vals := range values {
		if len(vals) == 1 {
			m[k] = vals[0]
		} else {
			m[k] = vals
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return BadRequest(err.Error())
	}
	return nil
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// Input returns a query or form value.
func (req *Request) Input(key string, fallback ...string) string {
	_ = req.raw.ParseForm()
	v := req.raw.FormValue(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a chi route parameter.
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func (req *Request) BearerToken() string {
	token, ok := strings.CutPrefix(req.raw.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// IP returns the client address: the first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote host.
func (req *Request) IP() string {
	if fwd := req.raw.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if rip := req.raw.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(req.raw.RemoteAddr)
	if err != nil {
		return req.raw.RemoteAddr
	}
	return host
}

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}

// IsJSON reports whether the request sends or expects JSON.
func (req *Request) IsJSON() bool {
	return strings.Contains(req.raw.Header.Get("Accept"), "application/json") ||
		strings.Contains(req.ContentType(), "application/json")
}

// IsAjax reports an XMLHttpRequest-style call.
func (req *Request) IsAjax() bool {
	return req.raw.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

// Scheme returns "https" for TLS connections or a forwarded https request.
func (req *Request) Scheme() string {
	if req.raw.TLS != nil || strings.EqualFold(req.raw.Header.Get("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}
