package rest

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// RouteSelector finds the best matching Route given the input HTTP Request
type RouteSelector interface {
	// SelectRoute finds a Route given the input HTTP Request and a list if WebServices
	// It returns a selected Route and its containing WebService or an error indicating a problem
	SelectRoute(webServices []*WebService, httpRequest *http.Request) (selectedService *WebService, selected *Route, err error)
}

// CurlyRouter selects routes by their path templates, e.g. /users/{id}, /users/{id:[0-9]+} or /files/{path:*}.
//
// Among the routes matching the path, routes with more literal segments win,
// then routes with more parameters, then the lexically smaller template.
type CurlyRouter struct{}

// SelectRoute implements RouteSelector
func (c CurlyRouter) SelectRoute(webServices []*WebService, httpRequest *http.Request) (*WebService, *Route, error) {
	segments := tokenizePath(httpRequest.URL.Path)

	detectedService := c.detectWebService(segments, webServices)
	if detectedService == nil {
		return nil, nil, NewError(http.StatusNotFound, "404: page not found")
	}
	candidates := c.selectRoutes(detectedService, segments)
	if len(candidates) == 0 {
		return detectedService, nil, NewError(http.StatusNotFound, "404: page not found")
	}
	selected, err := c.detectRoute(candidates, httpRequest)
	if err != nil {
		return detectedService, nil, err
	}
	return detectedService, selected, nil
}

// detectWebService returns the WebService whose root path matches the most of segments
func (c CurlyRouter) detectWebService(segments []string, webServices []*WebService) *WebService {
	var selected *WebService
	score := -1
	for _, service := range webServices {
		if serviceScore, ok := matchPrefix(service.rootTokens, segments); ok && serviceScore > score {
			selected = service
			score = serviceScore
		}
	}
	return selected
}

type candidateRoute struct {
	route       *Route
	paramCount  int
	staticCount int
}

// selectRoutes returns the routes of ws matching segments, best match first
func (c CurlyRouter) selectRoutes(ws *WebService, segments []string) []*Route {
	var candidates []candidateRoute
	for i := range ws.routes {
		route := &ws.routes[i]
		if paramCount, staticCount, ok := matchPath(route.tokens, segments); ok {
			candidates = append(candidates, candidateRoute{route: route, paramCount: paramCount, staticCount: staticCount})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.staticCount != b.staticCount {
			return a.staticCount > b.staticCount
		}
		if a.paramCount != b.paramCount {
			return a.paramCount > b.paramCount
		}
		return a.route.Path < b.route.Path
	})
	routes := make([]*Route, len(candidates))
	for i, cr := range candidates {
		routes[i] = cr.route
	}
	return routes
}

// detectRoute narrows candidates by method, Content-Type and Accept, in that order
func (c CurlyRouter) detectRoute(candidates []*Route, httpRequest *http.Request) (*Route, error) {
	byMethod := filterRoutes(candidates, func(r *Route) bool {
		return r.Method == httpRequest.Method
	})
	if len(byMethod) == 0 {
		var allowed []string
		for _, r := range candidates {
			if !containsString(allowed, r.Method) {
				allowed = append(allowed, r.Method)
			}
		}
		header := http.Header{HEADER_Allow: []string{strings.Join(allowed, ", ")}}
		return nil, NewErrorWithHeader(http.StatusMethodNotAllowed, "405: Method Not Allowed", header)
	}

	contentType := httpRequest.Header.Get(HEADER_ContentType)
	byContentType := filterRoutes(byMethod, func(r *Route) bool {
		return r.matchesContentType(contentType)
	})
	if len(byContentType) == 0 {
		return nil, NewError(http.StatusUnsupportedMediaType, "415: Unsupported Media Type")
	}

	accept := httpRequest.Header.Get(HEADER_Accept)
	if accept == "" {
		accept = "*/*"
	}
	byAccept := filterRoutes(byContentType, func(r *Route) bool {
		return r.matchesAccept(accept)
	})
	if len(byAccept) == 0 {
		var available []string
		for _, r := range byContentType {
			available = append(available, r.Produces...)
		}
		return nil, NewError(http.StatusNotAcceptable,
			fmt.Sprintf("406: Not Acceptable\n\nAvailable representations: %s", strings.Join(available, ", ")))
	}
	return byAccept[0], nil
}

func filterRoutes(routes []*Route, keep func(*Route) bool) []*Route {
	var result []*Route
	for _, r := range routes {
		if keep(r) {
			result = append(result, r)
		}
	}
	return result
}

func containsString(a []string, s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}
