package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/sync/singleflight"

	"wedge.io/wedge/lib/db"
	"wedge.io/wedge/lib/logger"
	"wedge.io/wedge/lib/runtime/scheme"
)

// RoutePrefix is the resources namespace remapping route names to qualified type names
const RoutePrefix = "rest."

var errNoResponse = errors.New("handler returned no response")

var nullJSON = []byte("null")

// RouteSource looks up route remappings
type RouteSource interface {
	Lookup(key string) (string, bool)
}

// Call describes a single dispatch
type Call struct {
	Method  string // http.MethodGet, http.MethodPost, http.MethodPut or http.MethodDelete
	Route   string
	NoToken bool

	// Param is passed to DoGet
	Param string

	// Body is decoded for POST, PUT and DELETE
	Body io.Reader
}

// Executor dispatches calls to the handlers registered in a scheme.Scheme
type Executor struct {
	scheme   *scheme.Scheme
	routes   RouteSource
	messages MessageSource

	// route name -> qualified type name for routes resolved through RouteSource
	remapped sync.Map
	group    singleflight.Group

	// remapGen is bumped by ResetRouteCache; lookups started under an older
	// generation must not populate remapped
	remapMu  sync.Mutex
	remapGen uint64

	// limit for request bodies read by Install routes; <= 0 means unlimited
	maxBodySize int64
}

// NewExecutor returns an Executor resolving handlers from s, remapping routes through routes
// and resolving error texts through messages
func NewExecutor(s *scheme.Scheme, routes RouteSource, messages MessageSource) *Executor {
	return &Executor{
		scheme:      s,
		routes:      routes,
		messages:    messages,
		maxBodySize: *maxRequestBodySize,
	}
}

// ResetRouteCache drops cached route remappings; call it after the route source changed
func (e *Executor) ResetRouteCache() {
	e.remapMu.Lock()
	e.remapGen++
	e.remapped.Clear()
	e.remapMu.Unlock()
}

func (e *Executor) routeGeneration() uint64 {
	e.remapMu.Lock()
	defer e.remapMu.Unlock()
	return e.remapGen
}

// storeRemap caches route -> typeName unless the cache was reset after generation gen was read
func (e *Executor) storeRemap(gen uint64, route, typeName string) {
	e.remapMu.Lock()
	defer e.remapMu.Unlock()
	if gen == e.remapGen {
		e.remapped.Store(route, typeName)
	}
}

// Dispatch resolves and invokes the handler for c.
//
// It never fails: every failure is reported through the returned envelope.
func (e *Executor) Dispatch(ctx context.Context, c Call) (res Response) {
	startTime := time.Now()
	name := verbName(c)
	logger.Infof("REST %s start. class=%s", name, c.Route)

	ctx, tracker := db.WithTracker(ctx)
	result := "ok"
	defer func() {
		if p := recover(); p != nil {
			logger.Errorf("unexpected panic in %s for %s: %v\n%s", name, c.Route, p, debug.Stack())
			res = e.createError(fmt.Sprint(p))
			result = "error"
		}
		if n := tracker.CloseAll(); n > 0 {
			logger.Debugf("closed %d rows left open by %s", n, c.Route)
		}
		metrics.GetOrCreateCounter(fmt.Sprintf(`wedge_dispatch_total{verb=%q,result=%q}`, c.Method, result)).Inc()
		metrics.GetOrCreateHistogram(fmt.Sprintf(`wedge_dispatch_duration_seconds{verb=%q}`, c.Method)).UpdateDuration(startTime)
	}()

	reg, err := e.resolve(c.Route)
	if err != nil {
		logger.Errorf("unexpected error while resolving %s: %s", c.Route, err)
		result = "error"
		return e.createError(err.Error())
	}
	if reg == nil || (c.NoToken && !reg.NoToken) {
		result = "routing_error"
		return e.createRoutingError()
	}

	res, err = e.invoke(ctx, reg, c)
	if err != nil {
		var ue *unmarshalError
		if errors.As(err, &ue) {
			logger.Errorf("cannot decode request for %s: %s", c.Route, ue.err)
			result = "unmarshal_error"
			return e.createUnmarshalError(ue.err.Error())
		}
		logger.Errorf("unexpected error in %s for %s: %s", name, c.Route, err)
		result = "error"
		return e.createError(err.Error())
	}
	logger.Infof("REST %s end.", name)
	return res
}

// resolve returns the registration for route or nil if route cannot be resolved.
// An error is returned if route is remapped to a type that is not registered.
func (e *Executor) resolve(route string) (*scheme.Registration, error) {
	if reg, ok := e.scheme.Lookup(route); ok {
		return reg, nil
	}

	var typeName string
	if v, ok := e.remapped.Load(route); ok {
		typeName = v.(string)
	} else {
		gen := e.routeGeneration()
		// callers arriving after a reset must not share a lookup started before it
		key := strconv.FormatUint(gen, 10) + "/" + route
		v, _, _ := e.group.Do(key, func() (any, error) {
			name, _ := e.routes.Lookup(RoutePrefix + route)
			name = strings.TrimSpace(name)
			if name != "" {
				// only hits are cached, so arbitrary route names cannot grow the cache
				e.storeRemap(gen, route, name)
			}
			return name, nil
		})
		typeName = v.(string)
	}
	if typeName == "" {
		return nil, nil
	}

	logger.Infof("actual logicClass=%s", typeName)
	reg, ok := e.scheme.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("route %q is mapped to %w %q", route, scheme.ErrUnknownType, typeName)
	}
	return reg, nil
}

func (e *Executor) invoke(ctx context.Context, reg *scheme.Registration, c Call) (Response, error) {
	handler := reg.New()

	var res Response
	var err error
	switch c.Method {
	case http.MethodGet:
		h, ok := handler.(Getter)
		if !ok {
			return nil, verbNotSupported(reg, c.Method)
		}
		logger.Debugf("get parameter=%s", c.Param)
		res, err = h.DoGet(ctx, c.Param)
	case http.MethodPost:
		h, ok := handler.(Poster)
		if !ok {
			return nil, verbNotSupported(reg, c.Method)
		}
		req, derr := decodeRequest(reg, c, reg.RequestTypes.Post)
		if derr != nil {
			return nil, derr
		}
		res, err = h.DoPost(ctx, req)
	case http.MethodPut:
		h, ok := handler.(Putter)
		if !ok {
			return nil, verbNotSupported(reg, c.Method)
		}
		req, derr := decodeRequest(reg, c, reg.RequestTypes.Put)
		if derr != nil {
			return nil, derr
		}
		res, err = h.DoPut(ctx, req)
	case http.MethodDelete:
		h, ok := handler.(Deleter)
		if !ok {
			return nil, verbNotSupported(reg, c.Method)
		}
		req, derr := decodeRequest(reg, c, reg.RequestTypes.Delete)
		if derr != nil {
			return nil, derr
		}
		res, err = h.DoDelete(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported method %s", c.Method)
	}
	if err != nil {
		return nil, err
	}
	if res == nil || res.GetEnvelope() == nil {
		return nil, errNoResponse
	}
	logger.Debugf("response=%+v", res)
	return res, nil
}

type unmarshalError struct {
	err error
}

func (e *unmarshalError) Error() string {
	return e.err.Error()
}

// decodeRequest decodes the call body into a new value of the declared request type.
// Unknown fields, empty bodies and a literal null are rejected.
func decodeRequest(reg *scheme.Registration, c Call, newRequest func() any) (any, error) {
	if newRequest == nil {
		return nil, fmt.Errorf("%s declares no request type for %s", reg.GroupKind, c.Method)
	}
	req := newRequest()
	body := c.Body
	if body == nil {
		body = strings.NewReader("")
	}
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("no content to map due to end-of-input")
		}
		return nil, &unmarshalError{err: err}
	}
	if bytes.Equal(raw, nullJSON) {
		return nil, &unmarshalError{err: fmt.Errorf("cannot map null to %T", req)}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		return nil, &unmarshalError{err: err}
	}
	logger.Debugf("request=%+v", req)
	return req, nil
}

func verbNotSupported(reg *scheme.Registration, method string) error {
	return fmt.Errorf("%s does not support %s", reg.GroupKind, method)
}

func verbName(c Call) string {
	var s string
	switch c.Method {
	case http.MethodGet:
		s = "doGet"
	case http.MethodPost:
		s = "doPost"
	case http.MethodPut:
		s = "doPut"
	case http.MethodDelete:
		s = "doDelete"
	default:
		s = "do" + c.Method
	}
	if c.NoToken {
		s += "NoToken"
	}
	return s
}
