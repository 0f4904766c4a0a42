package httpserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerWrapper(t *testing.T) {
	var s server
	rh := func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Path != "/hello" {
			return false
		}
		_, _ = w.Write([]byte("world"))
		return true
	}

	f := func(path string, wantCode int, wantBody string) {
		t.Helper()
		w := httptest.NewRecorder()
		s.handlerWrapper(w, httptest.NewRequest(http.MethodGet, path, nil), rh)
		assert.Equal(t, wantCode, w.Code, path)
		assert.Contains(t, w.Body.String(), wantBody, path)
		assert.Equal(t, hostname, w.Header().Get("X-Server-Hostname"))
		assert.Equal(t, *headerFrameOptions, w.Header().Get("X-Frame-Options"))
	}

	f("/hello", http.StatusOK, "world")
	f("/health", http.StatusOK, "OK")
	f("/metrics", http.StatusOK, "wedge_http_requests_all_total")
	f("/missing", http.StatusBadRequest, `unsupported path requested: "/missing"`)

	s.shutdownDelayDeadline.Store(time.Now().Add(time.Minute).UnixNano())
	f("/health", http.StatusServiceUnavailable, "delayed shutdown mode")
}

func TestHandlerWrapperPanic(t *testing.T) {
	var s server
	rh := func(_ http.ResponseWriter, _ *http.Request) bool {
		panic("boom")
	}
	before := panicRequests.Get()

	w := httptest.NewRecorder()
	s.handlerWrapper(w, httptest.NewRequest(http.MethodGet, "/api/echo", nil), rh)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, before+1, panicRequests.Get())
	assert.Equal(t, int64(0), inflightRequests.Load())
}

func TestServeStop(t *testing.T) {
	ln, err := NewTCPListener("test", "127.0.0.1:0", true, nil)
	require.NoError(t, err)
	addr := ln.Addr().String()

	rh := func(w http.ResponseWriter, r *http.Request) bool {
		_, _ = fmt.Fprintf(w, "remote=%s", r.RemoteAddr)
		return true
	}
	done := make(chan struct{})
	go func() {
		serveWithListener(addr, ln, rh)
		close(done)
	}()

	var conn net.Conn
	require.Eventually(t, func() bool {
		serversLock.Lock()
		defer serversLock.Unlock()
		return servers[addr] != nil
	}, 5*time.Second, 10*time.Millisecond)

	conn, err = net.Dial("tcp4", addr)
	require.NoError(t, err)
	_, err = io.WriteString(conn, "PROXY TCP4 10.1.2.3 10.1.2.4 5555 80\r\nGET /x HTTP/1.1\r\nHost: test\r\nConnection: close\r\n\r\n")
	require.NoError(t, err)
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	_ = conn.Close()
	assert.Contains(t, string(resp), "remote=10.1.2.3:5555")

	require.NoError(t, Stop([]string{addr}))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("server didn't stop")
	}
}
