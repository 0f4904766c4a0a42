package sample

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"wedge.io/wedge/lib/appcontext"
	"wedge.io/wedge/lib/auth"
	"wedge.io/wedge/lib/dispatch"
	"wedge.io/wedge/lib/logger"
)

type LoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type LoginResponse struct {
	dispatch.Envelope
	Token string `json:"token,omitempty"`
}

// Login checks the password against the bcrypt hash in "user.<id>.password" and issues a token
type Login struct {
	issuer   *auth.Issuer
	users    Users
	messages dispatch.MessageSource
}

func (l *Login) DoPost(_ context.Context, req any) (dispatch.Response, error) {
	r := req.(*LoginRequest)
	if r.UserID == "" {
		return l.rejected("user_id is empty"), nil
	}
	hash, ok := l.users.Lookup("user." + r.UserID + ".password")
	if !ok || hash == "" {
		logger.Warnf("login rejected for unknown user %q", r.UserID)
		return l.rejected("invalid user id or password"), nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(r.Password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("cannot check password of %q: %w", r.UserID, err)
		}
		logger.Warnf("login rejected for user %q: wrong password", r.UserID)
		return l.rejected("invalid user id or password"), nil
	}

	role, _ := l.users.Lookup("user." + r.UserID + ".role")
	token, err := l.issuer.Issue(appcontext.Principal{UserID: r.UserID, Role: role})
	if err != nil {
		return nil, err
	}
	logger.Infof("user %q logged in with role %q", r.UserID, role)
	return &LoginResponse{Token: token}, nil
}

func (l *Login) rejected(reason string) dispatch.Response {
	return &LoginResponse{Envelope: dispatch.Envelope{
		ReturnCode: dispatch.CodeToken,
		ReturnMsg:  l.messages.Message(strconv.Itoa(dispatch.CodeToken), reason),
	}}
}
