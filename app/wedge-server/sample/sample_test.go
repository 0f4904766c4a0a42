package sample

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wedge.io/wedge/lib/appcontext"
	"wedge.io/wedge/lib/auth"
	"wedge.io/wedge/lib/converter"
	"wedge.io/wedge/lib/dispatch"
	"wedge.io/wedge/lib/resources"
	"wedge.io/wedge/lib/runtime/scheme"
)

func TestRegister(t *testing.T) {
	s := scheme.NewScheme()
	require.NoError(t, Register(s, Deps{}))
	assert.Equal(t, []string{"sample.Document", "sample.Echo", "sample.Login", "sample.Logout"}, s.KnownTypes())

	reg, ok := s.Lookup("sample.Echo")
	require.True(t, ok)
	assert.True(t, reg.NoToken)
	reg, ok = s.Lookup("sample.Document")
	require.True(t, ok)
	assert.False(t, reg.NoToken)

	assert.Error(t, Register(s, Deps{}), "duplicate registration must fail")
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	res := resources.New(map[string]string{
		"message.9004":      "token error. {0}",
		"user.bob.password": string(hash),
		"user.bob.role":     "user",
		"user.eve.password": "",
	})
	app := appcontext.New("wedge", "/api", true)
	issuer, err := auth.NewIssuer([]byte("0123456789abcdef"), time.Hour, app)
	require.NoError(t, err)
	l := &Login{issuer: issuer, users: res, messages: res}

	f := func(userID, password string, wantCode int) dispatch.Response {
		t.Helper()
		r, err := l.DoPost(context.Background(), &LoginRequest{UserID: userID, Password: password})
		require.NoError(t, err)
		assert.Equal(t, wantCode, r.GetEnvelope().ReturnCode, "user %q", userID)
		return r
	}
	f("", "pw", dispatch.CodeToken)
	f("nobody", "pw", dispatch.CodeToken)
	f("eve", "", dispatch.CodeToken)
	f("bob", "wrong", dispatch.CodeToken)

	r := f("bob", "pw", dispatch.CodeSuccess)
	token := r.(*LoginResponse).Token
	p, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, appcontext.Principal{UserID: "bob", Role: "user"}, p)
}

func TestLogoutUnauthenticated(t *testing.T) {
	_, err := (&Logout{}).DoDelete(context.Background(), &LogoutRequest{})
	assert.Error(t, err)
}

func TestDocumentInvalidName(t *testing.T) {
	d := &Document{converter: &converter.Converter{Bin: "false", WorkDir: t.TempDir()}}
	_, err := d.DoPost(context.Background(), &DocumentRequest{FileName: ""})
	assert.ErrorContains(t, err, "invalid file_name")
}

func TestDocumentNoPages(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "convert.sh")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	workDir := t.TempDir()
	d := &Document{converter: &converter.Converter{Bin: bin, Timeout: 10 * time.Second, WorkDir: workDir}}

	_, err := d.DoPost(context.Background(), &DocumentRequest{FileName: "doc.pdf", Content: []byte("%PDF-1.4")})
	assert.ErrorContains(t, err, "document has no pages")

	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload and output directories must be removed")
}
