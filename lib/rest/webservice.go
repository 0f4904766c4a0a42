package rest

import (
	"net/http"

	"wedge.io/wedge/lib/logger"
)

// WebService holds a collection of Route values that bind a HTTP Method + URL Path to a function
type WebService struct {
	rootPath   string
	rootTokens []pathToken
	routes     []Route
	produces   []string
	consumes   []string
	filters    []FilterFunction
}

// RootPath returns the RootPath associated with this WebService. Default "/"
func (w *WebService) RootPath() string {
	return w.rootPath
}

// Path specifies the root URL template path of the WebService
// All Routes will be relative to this path
func (w *WebService) Path(root string) *WebService {
	w.rootPath = root
	if len(w.rootPath) == 0 {
		w.rootPath = "/"
	}
	tokens, err := parsePathTemplate(w.rootPath)
	if err != nil {
		logger.Fatalf("invalid web service path: %s", err)
	}
	w.rootTokens = tokens
	return w
}

// Produces specifies that this WebService can produce one or more MIME types
// Http requests must have one of these values set for the Accept header
func (w *WebService) Produces(contentTypes ...string) *WebService {
	w.produces = contentTypes
	return w
}

// Consumes specifies that this WebService can consume one or more MIME types
// Http requests must have one of these values set for the Content-Type header
func (w *WebService) Consumes(accepts ...string) *WebService {
	w.consumes = accepts
	return w
}

// Filter adds a filter function to the chain of filters applicable to all its Routes
func (w *WebService) Filter(filter FilterFunction) *WebService {
	w.filters = append(w.filters, filter)
	return w
}

// Route creates a new Route using the RouteBuilder and add to the ordered list of Routes
func (w *WebService) Route(builder *RouteBuilder) *WebService {
	builder.copyDefaults(w.produces, w.consumes)
	w.routes = append(w.routes, builder.Build())
	return w
}

// Routes returns the Routes associated with this WebService
func (w *WebService) Routes() []Route {
	result := make([]Route, len(w.routes))
	copy(result, w.routes)
	return result
}

// Method creates a new RouteBuilder and initialize its http method
func (w *WebService) Method(httpMethod string) *RouteBuilder {
	return new(RouteBuilder).servicePath(w.rootPath).Method(httpMethod)
}

// GET is a shortcut for .Method("GET").Path(subPath)
func (w *WebService) GET(subPath string) *RouteBuilder {
	return w.Method(http.MethodGet).Path(subPath)
}

// POST is a shortcut for .Method("POST").Path(subPath)
func (w *WebService) POST(subPath string) *RouteBuilder {
	return w.Method(http.MethodPost).Path(subPath)
}

// PUT is a shortcut for .Method("PUT").Path(subPath)
func (w *WebService) PUT(subPath string) *RouteBuilder {
	return w.Method(http.MethodPut).Path(subPath)
}

// PATCH is a shortcut for .Method("PATCH").Path(subPath)
func (w *WebService) PATCH(subPath string) *RouteBuilder {
	return w.Method(http.MethodPatch).Path(subPath)
}

// DELETE is a shortcut for .Method("DELETE").Path(subPath)
func (w *WebService) DELETE(subPath string) *RouteBuilder {
	return w.Method(http.MethodDelete).Path(subPath)
}
