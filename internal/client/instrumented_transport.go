package client

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Belphemur/SubtitleRipper/internal/metrics"
)

// instrumentedTransport counts requests by method and status and times them.
type instrumentedTransport struct {
	next http.RoundTripper
}

func newInstrumentedTransport(next http.RoundTripper) http.RoundTripper {
	return &instrumentedTransport{next: next}
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	metrics.HTTPRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	code := "error"
	if err == nil {
		code = strconv.Itoa(resp.StatusCode)
	}
	metrics.HTTPRequestsTotal.WithLabelValues(req.Method, code).Inc()
	return resp, err
}

// CloseIdleConnections forwards to the wrapped transport.
func (t *instrumentedTransport) CloseIdleConnections() {
	closeIdleConnections(t.next)
}

// closeIdleConnections mirrors http.Client.CloseIdleConnections for wrapped transports.
func closeIdleConnections(rt http.RoundTripper) {
	type closeIdler interface {
		CloseIdleConnections()
	}
	if c, ok := rt.(closeIdler); ok {
		c.CloseIdleConnections()
	}
}
