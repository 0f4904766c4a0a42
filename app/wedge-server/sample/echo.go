package sample

import (
	"context"

	"wedge.io/wedge/lib/dispatch"
)

type EchoRequest struct {
	Message string `json:"message"`
}

type EchoResponse struct {
	dispatch.Envelope
	Message string `json:"message"`
}

// Echo returns what it was given
type Echo struct{}

func (*Echo) DoGet(_ context.Context, param string) (dispatch.Response, error) {
	return &EchoResponse{Message: param}, nil
}

func (*Echo) DoPost(_ context.Context, req any) (dispatch.Response, error) {
	return &EchoResponse{Message: req.(*EchoRequest).Message}, nil
}
