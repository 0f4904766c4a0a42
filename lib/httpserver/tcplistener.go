package httpserver

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"golang.org/x/net/netutil"

	"wedge.io/wedge/lib/logger"
)

var (
	enableTCP6               = flag.Bool("enableTCP6", false, "Whether to enable IPv6 for listening and dialing. By default, only IPv4 TCP and UDP are used")
	maxConcurrentConnections = flag.Int("http.maxConcurrentConnections", 0, "The maximum number of concurrent connections accepted at every -httpListenAddr. "+
		"Connections above the limit wait until a slot is released. Zero value disables the limit")
)

// NewTCPListener returns a listener for the given addr.
//
// name is used in metric labels. Incoming connections are read through PROXY protocol v1 if useProxyProto is set,
// and are served over TLS if tlsConfig isn't nil.
func NewTCPListener(name, addr string, useProxyProto bool, tlsConfig *tls.Config) (*TCPListener, error) {
	network := GetTCPNetwork()
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	if *maxConcurrentConnections > 0 {
		ln = netutil.LimitListener(ln, *maxConcurrentConnections)
	}

	tln := &TCPListener{
		Listener:      ln,
		tlsConfig:     tlsConfig,
		useProxyProto: useProxyProto,

		accepts:      metrics.GetOrCreateCounter(fmt.Sprintf(`wedge_tcplistener_accepts_total{name=%q, addr=%q}`, name, addr)),
		acceptErrors: metrics.GetOrCreateCounter(fmt.Sprintf(`wedge_tcplistener_errors_total{name=%q, addr=%q, type="accept"}`, name, addr)),
	}
	return tln, nil
}

// TCPListener listens for the addr passed to NewTCPListener
type TCPListener struct {
	net.Listener

	tlsConfig     *tls.Config
	useProxyProto bool

	accepts      *metrics.Counter
	acceptErrors *metrics.Counter
}

// Accept accepts connections from the addr passed to NewTCPListener
func (ln *TCPListener) Accept() (net.Conn, error) {
	for {
		conn, err := ln.Listener.Accept()
		ln.accepts.Inc()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				logger.Errorf("temporary error when listening for TCP addr %q: %s", ln.Addr(), err)
				time.Sleep(time.Second)
				continue
			}
			ln.acceptErrors.Inc()
			return nil, err
		}
		if ln.useProxyProto {
			conn = newProxyProtocolConn(conn)
		}
		if ln.tlsConfig != nil {
			conn = tls.Server(conn, ln.tlsConfig)
		}
		return conn, nil
	}
}

// GetTCPNetwork returns current tcp network.
func GetTCPNetwork() string {
	if *enableTCP6 {
		// Enable both tcp4 and tcp6
		return "tcp"
	}
	return "tcp4"
}
