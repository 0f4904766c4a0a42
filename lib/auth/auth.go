package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"wedge.io/wedge/lib/appcontext"
	"wedge.io/wedge/lib/logger"
)

var (
	// ErrNoToken is returned when the request carries no token
	ErrNoToken = errors.New("no token")
	// ErrUnknownToken is returned for well-formed tokens that were never issued or were revoked
	ErrUnknownToken = errors.New("unknown token")
	// ErrForbidden is returned when the principal's role may not access the path
	ErrForbidden = errors.New("forbidden")
)

// Claims are the JWT claims of issued tokens
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HS256 tokens and keeps them in the application context token map
type Issuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
	app    *appcontext.ApplicationContext

	now func() time.Time
}

// NewIssuer returns an Issuer signing with key; tokens expire after ttl
func NewIssuer(key []byte, ttl time.Duration, app *appcontext.ApplicationContext) (*Issuer, error) {
	if len(key) < 16 {
		return nil, fmt.Errorf("signing key must be at least 16 bytes; got %d", len(key))
	}
	return &Issuer{
		key:    key,
		ttl:    ttl,
		issuer: app.ApplicationID,
		app:    app,
		now:    time.Now,
	}, nil
}

// Issue returns a signed token for p and binds it in the token map.
// Bindings of tokens that expired without being presented again are dropped.
func (i *Issuer) Issue(p appcontext.Principal) (string, error) {
	now := i.now()
	if n := i.app.RemoveExpiredTokens(now); n > 0 {
		logger.Infof("removed %d expired tokens", n)
	}
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("cannot sign token for %q: %w", p.UserID, err)
	}
	i.app.PutTokenUntil(token, p, expiresAt)
	return token, nil
}

// Verify checks the signature and expiry of token and returns the principal bound to it
func (i *Issuer) Verify(token string) (appcontext.Principal, error) {
	if token == "" {
		return appcontext.Principal{}, ErrNoToken
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(i.issuer), jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			i.app.RemoveToken(token)
		}
		return appcontext.Principal{}, fmt.Errorf("invalid token: %w", err)
	}
	p, ok := i.app.Token(token)
	if !ok {
		return appcontext.Principal{}, ErrUnknownToken
	}
	if p.UserID != claims.Subject {
		return appcontext.Principal{}, fmt.Errorf("%w: subject mismatch", ErrUnknownToken)
	}
	return p, nil
}

// Revoke removes token from the token map
func (i *Issuer) Revoke(token string) bool {
	return i.app.RemoveToken(token)
}

type principalKey struct{}

type principalValue struct {
	principal appcontext.Principal
	token     string
}

// WithPrincipal returns a copy of ctx carrying p and the token it was authenticated with
func WithPrincipal(ctx context.Context, p appcontext.Principal, token string) context.Context {
	return context.WithValue(ctx, principalKey{}, principalValue{principal: p, token: token})
}

// PrincipalFrom returns the principal bound to ctx
func PrincipalFrom(ctx context.Context) (appcontext.Principal, bool) {
	v, ok := ctx.Value(principalKey{}).(principalValue)
	return v.principal, ok
}

// TokenFrom returns the token the request of ctx was authenticated with
func TokenFrom(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(principalKey{}).(principalValue)
	return v.token, ok
}
