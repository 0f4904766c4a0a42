package rest

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/VictoriaMetrics/metrics"

	"wedge.io/wedge/lib/logger"
)

// Container routes requests to the WebServices added to it.
type Container struct {
	mu                     sync.RWMutex
	webServices            []*WebService
	router                 RouteSelector
	serviceErrorHandleFunc ServiceErrorHandleFunction
}

// NewContainer returns an empty Container backed by a CurlyRouter.
func NewContainer() *Container {
	return &Container{
		router:                 CurlyRouter{},
		serviceErrorHandleFunc: writeServiceError,
	}
}

func (c *Container) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.Dispatch(w, r)
}

// Dispatch selects the route for r and runs its filter chain.
func (c *Container) Dispatch(w http.ResponseWriter, r *http.Request) {
	if w == nil || r == nil {
		panic("BUG: Dispatch called with nil response writer or request")
	}

	c.mu.RLock()
	webService, route, err := c.router.SelectRoute(c.webServices, r)
	c.mu.RUnlock()
	if err != nil {
		var ser ServiceError
		if !errors.As(err, &ser) {
			ser = NewError(http.StatusInternalServerError, "500: Internal Server Error")
		}
		metrics.GetOrCreateCounter(fmt.Sprintf(`wedge_rest_unmatched_requests_total{code="%d"}`, ser.Code)).Inc()
		logger.Debugf("no route for %s %s: %s", r.Method, r.URL.Path, ser.Message)
		c.serviceErrorHandleFunc(ser, w, r)
		return
	}
	logger.Debugf("%s %s matched route %s", r.Method, r.URL.Path, route.Path)

	r = WithPathParams(r, extractParameters(route, r.URL.Path))
	filters := make([]FilterFunction, 0, len(webService.filters)+len(route.Filters))
	filters = append(filters, webService.filters...)
	filters = append(filters, route.Filters...)
	chain := FilterChain{Filters: filters, Target: route.Function}
	chain.ProcessFilter(w, r)
}

// Add registers service. A WebService without a root path is mounted at "/".
// Registering two services under the same root is a programming error.
func (c *Container) Add(service *WebService) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()

	if service.rootPath == "" {
		service.Path("/")
	}
	for _, ws := range c.webServices {
		if ws.rootPath == service.rootPath {
			logger.Fatalf("BUG: duplicate root path %q", service.rootPath)
		}
	}
	c.webServices = append(c.webServices, service)
	return c
}

// Remove unregisters the WebService mounted at the root path of service.
func (c *Container) Remove(service *WebService) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, ws := range c.webServices {
		if ws.rootPath == service.rootPath {
			c.webServices = append(c.webServices[:i:i], c.webServices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no web service registered at %q", service.rootPath)
}

// RegisteredWebServices returns a copy of the registered WebServices.
func (c *Container) RegisteredWebServices() []*WebService {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*WebService(nil), c.webServices...)
}

// ServiceErrorHandleFunction writes the response for a request no route could serve.
type ServiceErrorHandleFunction func(ServiceError, http.ResponseWriter, *http.Request)

// ServiceErrorHandler replaces the default plain-text error writer.
func (c *Container) ServiceErrorHandler(handler ServiceErrorHandleFunction) {
	c.serviceErrorHandleFunc = handler
}

func writeServiceError(err ServiceError, w http.ResponseWriter, _ *http.Request) {
	for header, values := range err.Header {
		for _, value := range values {
			w.Header().Add(header, value)
		}
	}
	w.WriteHeader(err.Code)
	_, _ = w.Write([]byte(err.Message))
}
