package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedge.io/wedge/lib/appcontext"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestIssuer(t *testing.T) (*Issuer, *appcontext.ApplicationContext) {
	t.Helper()
	app := appcontext.New("wedge", "/api", true)
	i, err := NewIssuer(testKey, time.Hour, app)
	require.NoError(t, err)
	return i, app
}

func TestNewIssuerShortKey(t *testing.T) {
	_, err := NewIssuer([]byte("short"), time.Hour, appcontext.New("wedge", "/api", true))
	assert.Error(t, err)
}

func TestIssueVerify(t *testing.T) {
	i, app := newTestIssuer(t)
	alice := appcontext.Principal{UserID: "alice", Role: "admin"}

	token, err := i.Issue(alice)
	require.NoError(t, err)
	assert.Equal(t, 1, app.TokenCount())

	p, err := i.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, alice, p)

	assert.True(t, i.Revoke(token))
	_, err = i.Verify(token)
	assert.True(t, errors.Is(err, ErrUnknownToken))
}

func TestVerifyRejects(t *testing.T) {
	i, app := newTestIssuer(t)

	_, err := i.Verify("")
	assert.True(t, errors.Is(err, ErrNoToken))

	_, err = i.Verify("not-a-jwt")
	assert.Error(t, err)

	other, err := NewIssuer([]byte("fedcba9876543210fedcba9876543210"), time.Hour, app)
	require.NoError(t, err)
	forged, err := other.Issue(appcontext.Principal{UserID: "mallory"})
	require.NoError(t, err)
	_, err = i.Verify(forged)
	assert.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid), "got %v", err)
}

func TestVerifyExpired(t *testing.T) {
	i, app := newTestIssuer(t)
	issued := time.Now().Add(-2 * time.Hour)
	i.now = func() time.Time { return issued }
	token, err := i.Issue(appcontext.Principal{UserID: "bob"})
	require.NoError(t, err)

	i.now = time.Now
	_, err = i.Verify(token)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired), "got %v", err)
	assert.Equal(t, 0, app.TokenCount(), "expired tokens must be dropped from the token map")
}

func TestIssueDropsExpiredTokens(t *testing.T) {
	i, app := newTestIssuer(t)
	issued := time.Now().Add(-2 * time.Hour)
	i.now = func() time.Time { return issued }
	for _, user := range []string{"bob", "carol"} {
		_, err := i.Issue(appcontext.Principal{UserID: user})
		require.NoError(t, err)
	}
	require.Equal(t, 2, app.TokenCount())

	i.now = time.Now
	token, err := i.Issue(appcontext.Principal{UserID: "dave"})
	require.NoError(t, err)
	assert.Equal(t, 1, app.TokenCount(), "tokens never presented again must not stay bound after expiry")
	_, err = i.Verify(token)
	assert.NoError(t, err)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), appcontext.Principal{UserID: "alice"}, "tok")
	p, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", p.UserID)
	token, ok := TokenFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "tok", token)
}
