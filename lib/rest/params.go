package rest

import (
	"context"
	"net/http"
	"strings"
)

type pathParamsKey struct{}

// WithPathParams returns a shallow copy of r carrying pathParams
func WithPathParams(r *http.Request, pathParams map[string]string) *http.Request {
	ctx := context.WithValue(r.Context(), pathParamsKey{}, pathParams)
	return r.WithContext(ctx)
}

// PathParams returns the path parameters of the matched route; nil outside a Container
func PathParams(r *http.Request) map[string]string {
	m, _ := r.Context().Value(pathParamsKey{}).(map[string]string)
	return m
}

// PathParam returns the named path parameter or "" if the matched route has none
func PathParam(r *http.Request, name string) string {
	return PathParams(r)[name]
}

// extractParameters maps the parameter names of route to the corresponding segments of urlPath
func extractParameters(route *Route, urlPath string) map[string]string {
	segments := tokenizePath(urlPath)
	params := make(map[string]string, len(route.tokens))
	for i, t := range route.tokens {
		if !t.isParam() {
			continue
		}
		if i >= len(segments) {
			params[t.name] = ""
			continue
		}
		if t.tail {
			params[t.name] = strings.Join(segments[i:], "/")
			break
		}
		params[t.name] = segments[i]
	}
	return params
}
