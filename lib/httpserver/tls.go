package httpserver

import (
	"crypto/tls"
	"fmt"
	"sync"

	"wedge.io/wedge/lib/fasttime"
)

// GetServerTLSConfig returns TLS config for the server.
//
// The certificate is re-read from disk at most once a minute, so rotated certificates are picked up without restart.
func GetServerTLSConfig(tlsCertFile, tlsKeyFile string) (*tls.Config, error) {
	// fail fast on startup instead of on the first handshake
	if _, err := tls.LoadX509KeyPair(tlsCertFile, tlsKeyFile); err != nil {
		return nil, fmt.Errorf("cannot load TLS cert: %w", err)
	}
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	cfg.GetCertificate = newGetCertificateFunc(tlsCertFile, tlsKeyFile)
	return cfg, nil
}

func newGetCertificateFunc(tlsCertFile, tlsKeyFile string) func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	var certLock sync.Mutex
	var certDeadline uint64
	var cert *tls.Certificate
	return func(_ *tls.ClientHelloInfo) (*tls.Certificate, error) {
		certLock.Lock()
		defer certLock.Unlock()
		if fasttime.UnixTimestamp() > certDeadline {
			c, err := tls.LoadX509KeyPair(tlsCertFile, tlsKeyFile)
			if err != nil {
				return nil, err
			}
			certDeadline = fasttime.UnixTimestamp() + 60
			cert = &c
		}
		return cert, nil
	}
}
