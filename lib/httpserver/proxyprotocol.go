package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

// maxProxyHeaderLen is the longest PROXY protocol v1 header including CRLF
const maxProxyHeaderLen = 107

var errProxyHeaderTooLong = errors.New("PROXY protocol header exceeds 107 bytes")

type proxyProtocolConn struct {
	net.Conn
	once       sync.Once
	remoteAddr net.Addr
	readErr    error
}

func newProxyProtocolConn(c net.Conn) net.Conn {
	return &proxyProtocolConn{
		Conn: c,
	}
}

// RemoteAddr returns the client address announced in the PROXY header
func (ppc *proxyProtocolConn) RemoteAddr() net.Addr {
	ppc.readHeaderOnce()
	if ppc.remoteAddr != nil {
		return ppc.remoteAddr
	}
	return ppc.Conn.RemoteAddr()
}

func (ppc *proxyProtocolConn) Read(p []byte) (int, error) {
	ppc.readHeaderOnce()
	if ppc.readErr != nil {
		return 0, ppc.readErr
	}
	return ppc.Conn.Read(p)
}

func (ppc *proxyProtocolConn) readHeaderOnce() {
	ppc.once.Do(func() {
		// the header must arrive promptly after connect
		_ = ppc.Conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		addr, err := readProxyProto(ppc.Conn)
		_ = ppc.Conn.SetReadDeadline(time.Time{})
		if err != nil {
			ppc.readErr = fmt.Errorf("cannot read PROXY protocol header from %s: %w", ppc.Conn.RemoteAddr(), err)
			return
		}
		ppc.remoteAddr = addr
	})
}

// readProxyProto reads a PROXY protocol v1 header from r:
//
//	PROXY TCP4 192.168.0.1 192.168.0.11 56324 443\r\n
//
// It returns nil address for "PROXY UNKNOWN".
// The header is read byte by byte, so nothing after it is consumed.
func readProxyProto(r io.Reader) (net.Addr, error) {
	var line []byte
	b := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		line = append(line, b[0])
		if bytes.HasSuffix(line, []byte("\r\n")) {
			break
		}
		if len(line) >= maxProxyHeaderLen {
			return nil, errProxyHeaderTooLong
		}
	}
	fields := bytes.Fields(line)
	if len(fields) < 2 || string(fields[0]) != "PROXY" {
		return nil, fmt.Errorf("unexpected PROXY protocol header %q", line)
	}
	switch proto := string(fields[1]); proto {
	case "UNKNOWN":
		return nil, nil
	case "TCP4", "TCP6":
		if len(fields) != 6 {
			return nil, fmt.Errorf("unexpected number of fields in PROXY protocol header %q", line)
		}
		ip := net.ParseIP(string(fields[2]))
		if ip == nil || (proto == "TCP4") != (ip.To4() != nil) {
			return nil, fmt.Errorf("invalid source address %q for %s", fields[2], proto)
		}
		port, err := strconv.ParseUint(string(fields[4]), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid source port %q: %w", fields[4], err)
		}
		return &net.TCPAddr{IP: ip, Port: int(port)}, nil
	default:
		return nil, fmt.Errorf("unsupported PROXY protocol transport %q", proto)
	}
}
