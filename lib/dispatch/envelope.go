package dispatch

import (
	"context"
	"strconv"
)

// Return codes written to Envelope.ReturnCode
const (
	CodeSuccess   = 0
	CodeError     = 9001 // unexpected failure while dispatching
	CodeRouting   = 9002 // route unresolved or not callable without token
	CodeUnmarshal = 9003 // body did not decode into the declared request type
	CodeToken     = 9004 // token missing, invalid or not authorized
)

// Envelope is the uniform part of every response
type Envelope struct {
	ReturnCode int    `json:"return_cd"`
	ReturnMsg  string `json:"return_msg"`
}

// GetEnvelope makes every type embedding Envelope a Response
func (e *Envelope) GetEnvelope() *Envelope {
	return e
}

// Response is implemented by handler responses, usually by embedding Envelope
type Response interface {
	GetEnvelope() *Envelope
}

// EmptyResponse carries only the envelope
type EmptyResponse struct {
	Envelope
}

// Getter is implemented by handlers serving GET
type Getter interface {
	DoGet(ctx context.Context, param string) (Response, error)
}

// Poster is implemented by handlers serving POST; req is the value created by the declared request type
type Poster interface {
	DoPost(ctx context.Context, req any) (Response, error)
}

// Putter is implemented by handlers serving PUT
type Putter interface {
	DoPut(ctx context.Context, req any) (Response, error)
}

// Deleter is implemented by handlers serving DELETE
type Deleter interface {
	DoDelete(ctx context.Context, req any) (Response, error)
}

// MessageSource resolves message texts for return codes
type MessageSource interface {
	Message(code string, args ...any) string
}

func (e *Executor) newError(code int, args ...any) Response {
	return &EmptyResponse{Envelope{
		ReturnCode: code,
		ReturnMsg:  e.messages.Message(strconv.Itoa(code), args...),
	}}
}

func (e *Executor) createError(detail string) Response {
	return e.newError(CodeError, detail)
}

func (e *Executor) createRoutingError() Response {
	return e.newError(CodeRouting)
}

func (e *Executor) createUnmarshalError(detail string) Response {
	return e.newError(CodeUnmarshal, detail)
}

func (e *Executor) createTokenError(detail string) Response {
	return e.newError(CodeToken, detail)
}
