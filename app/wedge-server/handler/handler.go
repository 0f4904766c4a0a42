package handler

import (
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzhttp"

	"wedge.io/wedge/lib/dispatch"
	"wedge.io/wedge/lib/httpserver/filters"
	"wedge.io/wedge/lib/logger"
	"wedge.io/wedge/lib/rest"
)

// APIServerHandler holds the different http.Handlers used by the API server
type APIServerHandler struct {
	// FullHandlerChain is the one that is eventually served with. It wraps Director with the filters of DefaultChainBuilder
	FullHandlerChain http.Handler

	// InstallAPIs use this
	GoRestfulContainer *rest.Container

	// Director dispatches to the container if a web service is registered for the path
	Director http.Handler

	contextPath string
	executor    *dispatch.Executor
	tokenFilter rest.FilterFunction
}

// NewAPIServerHandler returns a handler serving executor under contextPath.
//
// tokenFilter guards the routes which require a token; it may be nil.
func NewAPIServerHandler(name, contextPath string, executor *dispatch.Executor, tokenFilter rest.FilterFunction) (*APIServerHandler, error) {
	// create REST API container
	container := rest.NewContainer()

	director := director{
		name:      name,
		container: container,
	}
	a := &APIServerHandler{
		FullHandlerChain:   DefaultChainBuilder(director),
		GoRestfulContainer: container,
		Director:           director,

		contextPath: contextPath,
		executor:    executor,
		tokenFilter: tokenFilter,
	}

	// Install APIs
	if err := a.InstallAPIs(); err != nil {
		return nil, err
	}

	return a, nil
}

// RequestHandler serves the request if a web service is registered for its path
func (a *APIServerHandler) RequestHandler(w http.ResponseWriter, r *http.Request) bool {
	if !a.Handles(r.URL.Path) {
		return false
	}
	a.ServeHTTP(w, r)
	return true
}

// Handles reports whether path belongs to a registered web service
func (a *APIServerHandler) Handles(path string) bool {
	for _, ws := range a.GoRestfulContainer.RegisteredWebServices() {
		if matchesRoot(ws.RootPath(), path) {
			return true
		}
	}
	return false
}

func (a *APIServerHandler) InstallAPIs() error {
	logger.Infof("installing wedge-server APIs at %s...", a.contextPath)

	ws := new(rest.WebService)
	ws.Path(a.contextPath).
		Consumes(rest.MIME_JSON).
		Produces(rest.MIME_JSON)
	a.executor.Install(ws, a.tokenFilter)

	a.GoRestfulContainer.Add(ws)
	return nil
}

// ChainBuilderFn is used to wrap the API handler using provided handler chain
// It is normally used to apply filtering like authentication and authorization
type ChainBuilderFn func(apiHandler http.Handler) http.Handler

// ServeHTTP makes it an http.Handler
func (a *APIServerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.FullHandlerChain.ServeHTTP(w, r)
}

type director struct {
	name      string
	container *rest.Container
}

func (d director) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	for _, ws := range d.container.RegisteredWebServices() {
		if matchesRoot(ws.RootPath(), path) {
			logger.Debugf("%v: %v %q satisfied by rest with web service %v", d.name, r.Method, path, ws.RootPath())
			d.container.Dispatch(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

// matchesRoot requires an exact match or a path boundary match
func matchesRoot(root, path string) bool {
	if !strings.HasPrefix(path, root) {
		return false
	}
	return len(path) == len(root) || path[len(root)] == '/' || strings.HasSuffix(root, "/")
}

// DefaultChainBuilder wraps apiHandler with request ids and response compression
func DefaultChainBuilder(apiHandler http.Handler) http.Handler {
	handler := apiHandler

	handler = gzhttp.GzipHandler(handler)
	// WithRequestInfo
	handler = filters.WithRequestInfo(handler)
	return handler
}
