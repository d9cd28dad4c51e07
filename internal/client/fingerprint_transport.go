package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

var errResponseHeaderTimeout = errors.New("timeout awaiting response headers")

// fingerprintTransport performs the TLS handshake with a Chrome ClientHello so that
// platforms fronted by bot protection see a browser fingerprint instead of Go's.
// The protocol negotiated on first contact with a host decides whether its
// requests go through the pooled HTTP/2 or HTTP/1.1 transport. Plain HTTP
// requests go through fallback.
type fingerprintTransport struct {
	dial          func(ctx context.Context, network, addr string) (net.Conn, error)
	config        *utls.Config
	headerTimeout time.Duration

	h1       *http.Transport
	h2       *http2.Transport
	fallback *http.Transport

	mu       sync.Mutex
	protocol map[string]string      // host:port -> negotiated ALPN protocol
	pending  map[string]*utls.UConn // first contact connection, handed to the next dial
}

func newFingerprintTransport(base *http.Transport) *fingerprintTransport {
	dial := base.DialContext
	if dial == nil {
		dial = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 60 * time.Second}).DialContext
	}
	t := &fingerprintTransport{
		dial:          dial,
		config:        &utls.Config{},
		headerTimeout: base.ResponseHeaderTimeout,
		fallback:      base,
		protocol:      make(map[string]string),
		pending:       make(map[string]*utls.UConn),
	}

	t.h1 = base.Clone()
	t.h1.ForceAttemptHTTP2 = false
	t.h1.TLSNextProto = map[string]func(string, *tls.Conn) http.RoundTripper{}
	t.h1.DialTLSContext = func(ctx context.Context, _, addr string) (net.Conn, error) {
		return t.dialTLS(ctx, addr, false)
	}

	t.h2 = &http2.Transport{
		DialTLSContext: func(ctx context.Context, _, addr string, _ *tls.Config) (net.Conn, error) {
			return t.dialTLS(ctx, addr, true)
		},
		ReadIdleTimeout: 30 * time.Second,
		PingTimeout:     15 * time.Second,
	}
	return t
}

func (t *fingerprintTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.fallback.RoundTrip(req)
	}

	proto, err := t.protocolFor(req.Context(), canonicalAddr(req.URL))
	if err != nil {
		return nil, err
	}
	if proto == http2.NextProtoTLS {
		return t.roundTripH2(req)
	}
	return t.h1.RoundTrip(req)
}

// CloseIdleConnections closes idle connections of every inner transport and
// any first contact connection no request picked up.
func (t *fingerprintTransport) CloseIdleConnections() {
	t.h1.CloseIdleConnections()
	t.h2.CloseIdleConnections()
	t.fallback.CloseIdleConnections()

	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, conn := range t.pending {
		conn.Close()
		delete(t.pending, addr)
	}
}

// protocolFor returns the protocol addr speaks, handshaking once to learn it.
func (t *fingerprintTransport) protocolFor(ctx context.Context, addr string) (string, error) {
	t.mu.Lock()
	proto, ok := t.protocol[addr]
	t.mu.Unlock()
	if ok {
		return proto, nil
	}

	conn, err := t.handshake(ctx, addr)
	if err != nil {
		return "", err
	}
	proto = conn.ConnectionState().NegotiatedProtocol

	t.mu.Lock()
	defer t.mu.Unlock()
	if known, ok := t.protocol[addr]; ok {
		// A concurrent request got there first
		conn.Close()
		return known, nil
	}
	t.protocol[addr] = proto
	t.pending[addr] = conn
	return proto, nil
}

// dialTLS is the dialer of both inner transports. It reuses the first contact
// connection when there is one and refuses connections whose protocol does not
// match the transport asking for them.
func (t *fingerprintTransport) dialTLS(ctx context.Context, addr string, wantH2 bool) (net.Conn, error) {
	t.mu.Lock()
	conn, ok := t.pending[addr]
	delete(t.pending, addr)
	t.mu.Unlock()

	if !ok {
		var err error
		if conn, err = t.handshake(ctx, addr); err != nil {
			return nil, err
		}
	}

	negotiated := conn.ConnectionState().NegotiatedProtocol
	if (negotiated == http2.NextProtoTLS) != wantH2 {
		conn.Close()
		return nil, fmt.Errorf("%s negotiated protocol %q on a new connection, expected the one seen on first contact", addr, negotiated)
	}
	return conn, nil
}

func (t *fingerprintTransport) handshake(ctx context.Context, addr string) (*utls.UConn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	raw, err := t.dial(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	cfg := t.config.Clone()
	cfg.ServerName = host
	conn := utls.UClient(raw, cfg, utls.HelloChrome_120)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	return conn, nil
}

// roundTripH2 applies the response header timeout the HTTP/2 transport lacks.
func (t *fingerprintTransport) roundTripH2(req *http.Request) (*http.Response, error) {
	if t.headerTimeout <= 0 {
		return t.h2.RoundTrip(req)
	}

	ctx, cancel := context.WithCancelCause(req.Context())
	timer := time.AfterFunc(t.headerTimeout, func() { cancel(errResponseHeaderTimeout) })
	resp, err := t.h2.RoundTrip(req.WithContext(ctx))
	if !timer.Stop() && err == nil {
		resp.Body.Close()
		err = context.Cause(ctx)
	}
	if err != nil {
		cause := context.Cause(ctx)
		cancel(nil)
		if errors.Is(cause, errResponseHeaderTimeout) {
			return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), errResponseHeaderTimeout)
		}
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: func() { cancel(nil) }}
	return resp, nil
}

// cancelBody releases the request context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel func()
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// canonicalAddr returns host:port for u, defaulting to the https port.
func canonicalAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
