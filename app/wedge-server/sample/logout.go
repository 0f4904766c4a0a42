package sample

import (
	"context"
	"errors"

	"wedge.io/wedge/lib/auth"
	"wedge.io/wedge/lib/dispatch"
)

type LogoutRequest struct{}

// Logout revokes the token the request was authenticated with
type Logout struct {
	issuer *auth.Issuer
}

func (l *Logout) DoDelete(ctx context.Context, _ any) (dispatch.Response, error) {
	token, ok := auth.TokenFrom(ctx)
	if !ok {
		return nil, errors.New("request is not authenticated")
	}
	l.issuer.Revoke(token)
	return &dispatch.EmptyResponse{}, nil
}
