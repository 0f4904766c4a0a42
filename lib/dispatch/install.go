package dispatch

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/http"

	"wedge.io/wedge/lib/logger"
	"wedge.io/wedge/lib/rest"
)

const noTokenPath = "/no_token"

var maxRequestBodySize = flag.Int64("http.maxRequestBodySize", 32*1024*1024, "The maximum size in bytes of a request body accepted by the dispatcher. "+
	"Larger bodies are answered with the request unmarshal error. Zero or negative value disables the limit")

// Install registers the dispatcher routes on ws:
//
//	GET    /{route}[/{param}]   /no_token/{route}[/{param}]
//	POST   /{route}             /no_token/{route}
//	PUT    /{route}             /no_token/{route}
//	DELETE /{route}             /no_token/{route}
//
// tokenFilter, if not nil, guards the routes outside /no_token.
func (e *Executor) Install(ws *rest.WebService, tokenFilter rest.FilterFunction) {
	withToken := func(b *rest.RouteBuilder) *rest.RouteBuilder {
		if tokenFilter != nil {
			b.Filter(tokenFilter)
		}
		return b
	}

	ws.Route(ws.GET(noTokenPath + "/{route}").To(e.serve(http.MethodGet, true)))
	ws.Route(ws.GET(noTokenPath + "/{route}/{param}").To(e.serve(http.MethodGet, true)))
	ws.Route(withToken(ws.GET("/{route}")).To(e.serve(http.MethodGet, false)))
	ws.Route(withToken(ws.GET("/{route}/{param}")).To(e.serve(http.MethodGet, false)))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		ws.Route(ws.Method(method).Path(noTokenPath + "/{route}").To(e.serve(method, true)))
		ws.Route(withToken(ws.Method(method).Path("/{route}")).To(e.serve(method, false)))
	}
}

func (e *Executor) serve(method string, noToken bool) rest.RouteFunction {
	return func(w http.ResponseWriter, r *http.Request) {
		c := Call{
			Method:  method,
			Route:   rest.PathParam(r, "route"),
			NoToken: noToken,
			Param:   rest.PathParam(r, "param"),
		}
		if method != http.MethodGet {
			c.Body = r.Body
			if e.maxBodySize > 0 {
				c.Body = http.MaxBytesReader(w, r.Body, e.maxBodySize)
			}
		}
		e.writeResponse(w, e.Dispatch(r.Context(), c))
	}
}

// WriteTokenError writes the token error envelope for err.
// It has the signature expected by the token filter.
func (e *Executor) WriteTokenError(w http.ResponseWriter, r *http.Request, err error) {
	logger.Warnf("rejected %s %s: %s", r.Method, r.URL.Path, err)
	e.writeResponse(w, e.createTokenError(err.Error()))
}

// writeResponse writes res as JSON. The status is always 200, the outcome is carried by the envelope.
func (e *Executor) writeResponse(w http.ResponseWriter, res Response) {
	var bb bytes.Buffer
	if err := json.NewEncoder(&bb).Encode(res); err != nil {
		logger.Errorf("cannot encode response %T: %s", res, err)
		bb.Reset()
		// the generic error envelope always encodes
		_ = json.NewEncoder(&bb).Encode(e.createError(err.Error()))
	}
	w.Header().Set(rest.HEADER_ContentType, rest.MIME_JSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bb.Bytes())
}
