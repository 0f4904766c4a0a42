package filters

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"wedge.io/wedge/lib/logger"
)

// HeaderRequestID carries the request id in requests and responses
const HeaderRequestID = "X-Request-Id"

type requestIDKey struct{}

// WithRequestInfo attaches a request id to the context and the response headers.
//
// An id supplied by the client in X-Request-Id is kept.
func WithRequestInfo(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		logger.Infof("Request Info: id=%s %s %s remote=%s", id, r.Method, r.RequestURI, r.RemoteAddr)
		handler.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestID returns the request id attached by WithRequestInfo
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
