package handler

import (
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wedge.io/wedge/app/wedge-server/sample"
	"wedge.io/wedge/lib/appcontext"
	"wedge.io/wedge/lib/auth"
	"wedge.io/wedge/lib/converter"
	"wedge.io/wedge/lib/dispatch"
	"wedge.io/wedge/lib/httpserver/filters"
	"wedge.io/wedge/lib/resources"
	"wedge.io/wedge/lib/runtime/scheme"
)

func newTestServer(t *testing.T) *APIServerHandler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	res := resources.New(map[string]string{
		"message.9001":        "unexpected error occurred. {0}",
		"message.9002":        "routing error.",
		"message.9003":        "request unmarshal error. {0}",
		"message.9004":        "token error. {0}",
		"rest.echo":           "sample.Echo",
		"rest.login":          "sample.Login",
		"rest.logout":         "sample.Logout",
		"rest.document":       "sample.Document",
		"user.alice.password": string(hash),
		"user.alice.role":     "admin",
	})

	app := appcontext.New("wedge", "/api", true)
	issuer, err := auth.NewIssuer([]byte("0123456789abcdef"), time.Hour, app)
	require.NoError(t, err)

	bin := filepath.Join(t.TempDir(), "pdf2svg.sh")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nprintf '<svg>1</svg>' > \"$(printf \"$2\" 1)\"\nprintf '<svg>2</svg>' > \"$(printf \"$2\" 2)\"\n"), 0o755))

	s := scheme.NewScheme()
	require.NoError(t, sample.Register(s, sample.Deps{
		Issuer:    issuer,
		Users:     res,
		Messages:  res,
		Converter: &converter.Converter{Bin: bin, Timeout: 10 * time.Second, WorkDir: t.TempDir()},
	}))
	executor := dispatch.NewExecutor(s, res, res)

	a, err := NewAPIServerHandler("test", "/api", executor, filters.TokenFilter(issuer, app, executor.WriteTokenError))
	require.NoError(t, err)
	return a
}

func call(t *testing.T, a *APIServerHandler, method, path, token, body string) map[string]any {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	require.True(t, a.RequestHandler(w, r))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(filters.HeaderRequestID))

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestAPIServerHandler(t *testing.T) {
	a := newTestServer(t)

	m := call(t, a, http.MethodGet, "/api/no_token/echo/hi", "", "")
	assert.Equal(t, float64(dispatch.CodeSuccess), m["return_cd"])
	assert.Equal(t, "hi", m["message"])

	m = call(t, a, http.MethodPost, "/api/no_token/sample.Echo", "", `{"message":"posted"}`)
	assert.Equal(t, "posted", m["message"])

	m = call(t, a, http.MethodGet, "/api/no_token/nothing", "", "")
	assert.Equal(t, float64(dispatch.CodeRouting), m["return_cd"])

	m = call(t, a, http.MethodPost, "/api/no_token/document", "", `{}`)
	assert.Equal(t, float64(dispatch.CodeRouting), m["return_cd"], "document requires a token")

	m = call(t, a, http.MethodPost, "/api/no_token/login", "", `{"user_id":"alice","password":"wrong"}`)
	assert.Equal(t, float64(dispatch.CodeToken), m["return_cd"])
	assert.Equal(t, "token error. invalid user id or password", m["return_msg"])
	assert.Nil(t, m["token"])

	m = call(t, a, http.MethodPost, "/api/no_token/login", "", `{"user_id":"alice","password":"s3cret"}`)
	require.Equal(t, float64(dispatch.CodeSuccess), m["return_cd"], m["return_msg"])
	token := m["token"].(string)
	require.NotEmpty(t, token)

	content := base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	m = call(t, a, http.MethodPost, "/api/document", "", `{"file_name":"a.pdf","content":"`+content+`"}`)
	assert.Equal(t, float64(dispatch.CodeToken), m["return_cd"])

	m = call(t, a, http.MethodPost, "/api/document", token, `{"file_name":"a.pdf","content":"`+content+`"}`)
	require.Equal(t, float64(dispatch.CodeSuccess), m["return_cd"], m["return_msg"])
	assert.Equal(t, []any{"<svg>1</svg>", "<svg>2</svg>"}, m["pages"])

	m = call(t, a, http.MethodPost, "/api/document", token, `{"file_name":"a.txt","content":"`+content+`"}`)
	assert.Equal(t, float64(dispatch.CodeError), m["return_cd"])
	assert.Contains(t, m["return_msg"], converter.ErrUnsupportedFormat.Error())

	m = call(t, a, http.MethodDelete, "/api/logout", token, `{}`)
	assert.Equal(t, float64(dispatch.CodeSuccess), m["return_cd"], m["return_msg"])

	m = call(t, a, http.MethodGet, "/api/echo/x", token, "")
	assert.Equal(t, float64(dispatch.CodeToken), m["return_cd"], "token must be revoked by logout")
}

func TestAPIServerHandlerGzip(t *testing.T) {
	a := newTestServer(t)
	long := strings.Repeat("wedge ", 1000)

	r := httptest.NewRequest(http.MethodGet, "/api/no_token/echo/"+strings.TrimSpace(strings.ReplaceAll(long, " ", "-")), nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	require.True(t, a.RequestHandler(w, r))
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"return_cd":0`)
}

func TestAPIServerHandlerUnknownPath(t *testing.T) {
	a := newTestServer(t)

	assert.True(t, a.Handles("/api"))
	assert.True(t, a.Handles("/api/echo"))
	assert.False(t, a.Handles("/apis/echo"))
	assert.False(t, a.Handles("/metrics"))

	w := httptest.NewRecorder()
	assert.False(t, a.RequestHandler(w, httptest.NewRequest(http.MethodGet, "/other", nil)))
	assert.Equal(t, 0, w.Body.Len())
}
