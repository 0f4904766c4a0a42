package rest

import (
	"net/http"
	"strings"
)

// RouteFunction is a function that can be called when a route is matched
type RouteFunction func(w http.ResponseWriter, r *http.Request)

// Route binds a HTTP Method, Path, Consumes combination to a RouteFunction
type Route struct {
	Method   string
	Produces []string
	Consumes []string
	Path     string // webservice root path + described path
	Function RouteFunction
	Filters  []FilterFunction

	// compiled Path
	tokens []pathToken
}

// matchesAccept returns whether the Accept header value allows a type this Route can produce.
func (r *Route) matchesAccept(accept string) bool {
	if len(r.Produces) == 0 {
		return true
	}
	return matchesMimeTypes(accept, r.Produces, true)
}

// matchesContentType returns whether the contentType matches to what this Route can consume.
// A request without Content-Type is accepted, the body is then decoded with the route defaults.
func (r *Route) matchesContentType(contentType string) bool {
	if len(r.Consumes) == 0 || contentType == "" {
		return true
	}
	return matchesMimeTypes(contentType, r.Consumes, false)
}

// matchesMimeTypes reports whether any type in the comma separated header value is one of supported.
// Parameters such as ";q=0.9" or ";charset=utf-8" are ignored.
func matchesMimeTypes(header string, supported []string, headerWildcard bool) bool {
	for _, mimeType := range strings.Split(header, ",") {
		mimeType, _, _ = strings.Cut(mimeType, ";")
		mimeType = strings.TrimSpace(mimeType)
		if headerWildcard && mimeType == "*/*" {
			return true
		}
		for _, s := range supported {
			if s == "*/*" || s == mimeType {
				return true
			}
		}
	}
	return false
}

// for debugging
func (r *Route) String() string {
	return r.Method + " " + r.Path
}
