package filters

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedge.io/wedge/lib/appcontext"
	"wedge.io/wedge/lib/auth"
	"wedge.io/wedge/lib/rest"
)

func TestWithRequestInfo(t *testing.T) {
	var seen string
	h := WithRequestInfo(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	require.NotEmpty(t, seen)
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, w.Header().Get(HeaderRequestID))

	r := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	r.Header.Set(HeaderRequestID, "client-id")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", w.Header().Get(HeaderRequestID))
}

type tokenFixture struct {
	app       *appcontext.ApplicationContext
	issuer    *auth.Issuer
	container *rest.Container
	rejected  []error
	principal appcontext.Principal
}

func newTokenFixture(t *testing.T, userManagement bool) *tokenFixture {
	t.Helper()
	f := &tokenFixture{app: appcontext.New("wedge", "/api", userManagement)}
	issuer, err := auth.NewIssuer([]byte("0123456789abcdef"), time.Hour, f.app)
	require.NoError(t, err)
	f.issuer = issuer

	reject := func(w http.ResponseWriter, _ *http.Request, err error) {
		f.rejected = append(f.rejected, err)
		w.WriteHeader(http.StatusOK)
	}
	ws := new(rest.WebService)
	ws.Path("/api")
	ws.Route(ws.GET("/{route}").Filter(TokenFilter(issuer, f.app, reject)).To(func(w http.ResponseWriter, r *http.Request) {
		f.principal, _ = auth.PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	f.container = rest.NewContainer()
	f.container.Add(ws)
	return f
}

func (f *tokenFixture) get(path, authorization string) int {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		r.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.container.ServeHTTP(w, r)
	return w.Code
}

func TestTokenFilter(t *testing.T) {
	f := newTokenFixture(t, true)
	acl, err := appcontext.NewRoleACL("admin", "/api/admin\\..*")
	require.NoError(t, err)
	f.app.SetRoleACL([]appcontext.RoleACL{acl})

	admin, err := f.issuer.Issue(appcontext.Principal{UserID: "alice", Role: "admin"})
	require.NoError(t, err)
	user, err := f.issuer.Issue(appcontext.Principal{UserID: "bob", Role: "user"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, f.get("/api/admin.Users", "Bearer "+admin))
	assert.Equal(t, "alice", f.principal.UserID)
	assert.Equal(t, http.StatusNoContent, f.get("/api/sample.Echo", "bearer "+user))
	assert.Equal(t, "bob", f.principal.UserID)
	require.Empty(t, f.rejected)

	f.get("/api/admin.Users", "Bearer "+user)
	f.get("/api/sample.Echo", "")
	f.get("/api/sample.Echo", "Basic abc")
	f.get("/api/sample.Echo", "Bearer not-a-jwt")
	f.issuer.Revoke(admin)
	f.get("/api/sample.Echo", "Bearer "+admin)

	require.Len(t, f.rejected, 5)
	assert.True(t, errors.Is(f.rejected[0], auth.ErrForbidden))
	assert.True(t, errors.Is(f.rejected[1], auth.ErrNoToken))
	assert.True(t, errors.Is(f.rejected[2], auth.ErrNoToken))
	assert.ErrorContains(t, f.rejected[3], "invalid token")
	assert.True(t, errors.Is(f.rejected[4], auth.ErrUnknownToken))
}

func TestTokenFilterUserManagementDisabled(t *testing.T) {
	f := newTokenFixture(t, false)
	assert.Equal(t, http.StatusNoContent, f.get("/api/sample.Echo", ""))
	assert.Empty(t, f.rejected)
}
