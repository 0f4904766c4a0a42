package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/sync/errgroup"

	"wedge.io/wedge/lib/appmetrics"
	"wedge.io/wedge/lib/lflag"
	"wedge.io/wedge/lib/logger"
)

var (
	tlsEnable   = lflag.NewArrayBool("tls", "Whether to enable TLS for the server, -tlsCertFile and -tlsKeyFile must be set if -tls is set")
	tlsCertFile = lflag.NewArrayString("tlsCertFile", "Path to file with TLS certificate for the corresponding -httpListenAddr if -tls is set."+
		"Prefer ECDSA certs instead of RSA certs as RSA certs are slower")
	tlsKeyFile                  = lflag.NewArrayString("tlsKeyFile", "Path to file with TLS key for the corresponding -httpListenAddr if -tls is set")
	maxGracefulShutdownDuration = flag.Duration("http.maxGracefulShutdownDuration", 7*time.Second, `The maximum duration for a graceful shutdown of the HTTP server. A highly loaded server may require increased value for a graceful shutdown`)
	shutdownDelay               = flag.Duration("http.shutdownDelay", 0, `Optional delay before http server shutdown. During this delay, the server returns non-OK responses from /health page, so load balancers can route new requests to other servers`)
	idleConnTimeout             = flag.Duration("http.idleConnTimeout", time.Minute, "Timeout for incoming idle http connections")
	connTimeout                 = flag.Duration("http.connTimeout", 2*time.Minute, "Incoming connections to -httpListenAddr are closed after the configured timeout. "+
		"This may help evenly spreading load among a cluster of services behind TCP-level load balancer. Zero value disables closing of incoming connections")
	headerHSTS         = flag.String("http.header.hsts", "max-age=31536000; includeSubDomains", "Value for 'Strict-Transport-Security' header, recommended: 'max-age=31536000; includeSubDomains'")
	headerFrameOptions = flag.String("http.header.frameOptions", "SAMEORIGIN", "Value for 'X-Frame-Options' header")
	headerCSP          = flag.String("http.header.csp", "default-src 'self'", `Value for 'Content-Security-Policy' header, recommended: "default-src 'self'"`)
)

var (
	servers     = make(map[string]*server)
	serversLock sync.Mutex
)

var hostname = func() string {
	h, err := os.Hostname()
	if err != nil {
		// Cannot use logger.Errorf, since it isn't initialized yet.
		// So use log.Printf instead.
		log.Printf("ERROR: cannot determine hostname: %s", err)
		return "unknown"
	}
	return h
}()

type server struct {
	s                     *http.Server
	shutdownDelayDeadline atomic.Int64

	idleConnTimeout time.Duration
	connTimeout     time.Duration
}

// RequestHandler must serve the given request r and write response to w
//
// RequestHandler must return true if the request has been served (successfully or not)
//
// RequestHandler must return false if it cannot serve the given request
type RequestHandler func(w http.ResponseWriter, r *http.Request) bool

type ServerOptions struct {
	// UseProxyProtocol if is set to true for the corresponding addr, then the incoming connections are accepted via proxy protocol
	UseProxyProtocol *lflag.ArrayBool
}

// Serve starts an http server on the given addresses with the given optional request handler
func Serve(addrs []string, rh RequestHandler, opts ServerOptions) {
	if rh == nil {
		rh = func(_ http.ResponseWriter, _ *http.Request) bool { return false }
	}
	for idx, addr := range addrs {
		if addr == "" {
			continue
		}
		logger.Infof("starting http server on %s", addr)
		go serve(addr, rh, idx, opts)
	}
}

func serve(addr string, rh RequestHandler, idx int, opts ServerOptions) {
	scheme := "http"
	var tlsConfig *tls.Config
	if tlsEnable.GetOptionalArg(idx) {
		scheme = "https"
		certFile := tlsCertFile.GetOptionalArg(idx)
		keyFile := tlsKeyFile.GetOptionalArg(idx)
		tc, err := GetServerTLSConfig(certFile, keyFile)
		if err != nil {
			logger.Fatalf("cannot load TLS cert from -tlsCertFile=%q, -tlsKeyFile=%q: %s", certFile, keyFile, err)
		}
		tlsConfig = tc
	}
	useProxyProto := opts.UseProxyProtocol != nil && opts.UseProxyProtocol.GetOptionalArg(idx)

	ln, err := NewTCPListener(scheme, addr, useProxyProto, tlsConfig)
	if err != nil {
		logger.Fatalf("cannot start http server on %s: %v", addr, err)
	}
	logger.Infof("started http server on %s://%s/", scheme, ln.Addr())

	serveWithListener(addr, ln, rh)
}

func serveWithListener(addr string, ln net.Listener, rh RequestHandler) {
	s := &server{
		idleConnTimeout: *idleConnTimeout,
		connTimeout:     *connTimeout,
	}
	s.s = &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.handlerWrapper(w, r, rh)
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       s.idleConnTimeout,
		ErrorLog:          logger.StdErrorLogger(),
	}
	if s.connTimeout > 0 {
		s.s.ConnContext = func(ctx context.Context, _ net.Conn) context.Context {
			return context.WithValue(ctx, connDeadlineKey{}, time.Now().Add(s.connTimeout))
		}
	}

	serversLock.Lock()
	servers[addr] = s
	serversLock.Unlock()
	if err := s.s.Serve(ln); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		logger.Panicf("FATAL: cannot serve http server on %s: %v", addr, err)
	}
}

// Stop stops the http server on the given addrs, which has been started via Serve func
func Stop(addrs []string) error {
	var g errgroup.Group
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		g.Go(func() error {
			return stop(addr)
		})
	}
	return g.Wait()
}

func stop(addr string) error {
	serversLock.Lock()
	s := servers[addr]
	delete(servers, addr)
	serversLock.Unlock()
	if s == nil {
		err := fmt.Errorf("BUG: there is no server at %q", addr)
		logger.Panicf("%s", err)
		return err
	}

	deadline := time.Now().Add(*shutdownDelay).UnixNano()
	s.shutdownDelayDeadline.Store(deadline)
	if *shutdownDelay > 0 {
		// Sleep for a while until load balancer in front of the server
		// notifies that "/health" endpoint returns non-OK responses
		logger.Infof("Waiting for %.3fs before shutdown of http server %q, so load balancers could re-route requests to other servers", shutdownDelay.Seconds(), addr)
		time.Sleep(*shutdownDelay)
		logger.Infof("Starting shutdown for http server %q", addr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *maxGracefulShutdownDuration)
	defer cancel()
	if err := s.s.Shutdown(ctx); err != nil {
		return fmt.Errorf("cannot gracefully shutdown http server at %q in %.3fs; "+
			"probably, `-http.maxGracefulShutdownDuration` command-line flag value must be increased; error: %s", addr, maxGracefulShutdownDuration.Seconds(), err)
	}
	return nil
}

type connDeadlineKey struct{}

var (
	requestsTotal       = metrics.NewCounter(`wedge_http_requests_all_total`)
	healthRequests      = metrics.NewCounter(`wedge_http_requests_total{path="/health"}`)
	metricsRequests     = metrics.NewCounter(`wedge_http_requests_total{path="/metrics"}`)
	unsupportedRequests = metrics.NewCounter(`wedge_http_request_errors_total{reason="unsupported"}`)
	panicRequests       = metrics.NewCounter(`wedge_http_request_errors_total{reason="panic"}`)
	requestDuration     = metrics.NewHistogram(`wedge_http_request_duration_seconds`)
	inflightRequests    atomic.Int64
	_                   = metrics.NewGauge(`wedge_http_requests_inflight`, func() float64 {
		return float64(inflightRequests.Load())
	})
)

func (s *server) handlerWrapper(w http.ResponseWriter, r *http.Request, rh RequestHandler) {
	requestsTotal.Inc()
	inflightRequests.Add(1)
	startTime := time.Now()
	defer func() {
		inflightRequests.Add(-1)
		requestDuration.UpdateDuration(startTime)
		if err := recover(); err != nil {
			panicRequests.Inc()
			buf := make([]byte, 64*1024)
			buf = buf[:runtime.Stack(buf, false)]
			logger.Errorf("panic while serving %s %q: %v\n%s", r.Method, r.URL.Path, err, buf)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}()

	h := w.Header()
	setSecurityHeaders(h)
	h.Set("X-Server-Hostname", hostname)
	if deadline, ok := r.Context().Value(connDeadlineKey{}).(time.Time); ok && startTime.After(deadline) {
		// spread clients among servers behind a TCP-level balancer
		h.Set("Connection", "close")
	}

	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/health":
		healthRequests.Inc()
		s.writeHealth(w)
		return
	case "/metrics":
		metricsRequests.Inc()
		h.Set("Content-Type", "text/plain; charset=utf-8")
		appmetrics.WritePrometheusMetrics(w)
		return
	}

	if rh(w, r) {
		return
	}
	unsupportedRequests.Inc()
	http.Error(w, fmt.Sprintf("unsupported path requested: %q", r.URL.Path), http.StatusBadRequest)
}

func setSecurityHeaders(h http.Header) {
	for name, value := range map[string]string{
		"Strict-Transport-Security": *headerHSTS,
		"X-Frame-Options":           *headerFrameOptions,
		"Content-Security-Policy":   *headerCSP,
	} {
		if value != "" {
			h.Set(name, value)
		}
	}
}

// writeHealth answers 503 once a delayed shutdown has begun.
func (s *server) writeHealth(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if deadline := s.shutdownDelayDeadline.Load(); deadline > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "The server is in delayed shutdown mode, which will end in %.3fs", time.Until(time.Unix(0, deadline)).Seconds())
		return
	}
	_, _ = w.Write([]byte("OK"))
}
