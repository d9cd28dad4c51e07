package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/failsafe-go/failsafe-go"
)

// ProgressFunc receives the bytes written since the previous call and the total
// announced by the server, or -1 when unknown.
type ProgressFunc func(delta, total int64)

// CheckURLExists requests rawURL and reports whether it answered with a success
// status. Protocol errors are logged with their status code and connection errors
// with their reason; neither is returned.
func (c *Client) CheckURLExists(ctx context.Context, rawURL string) bool {
	code, err := c.statusOf(ctx, http.MethodHead, rawURL)
	if err == nil && (code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented) {
		code, err = c.statusOf(ctx, http.MethodGet, rawURL)
	}

	if err != nil {
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("URL unreachable")
		return false
	}
	if code >= 400 {
		c.logger.Debug().Int("status", code).Str("url", rawURL).Msg("URL returned an error status")
		return false
	}
	return true
}

func (c *Client) statusOf(ctx context.Context, method, rawURL string) (int, error) {
	req, err := c.newRequest(ctx, method, rawURL, nil, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Stream downloads rawURL into w. Connection establishment and error statuses go
// through the retry policy; once the body starts flowing a failure is returned as is,
// since w may already hold partial data.
func (c *Client) Stream(ctx context.Context, rawURL string, w io.Writer, progress ProgressFunc) (int64, error) {
	resp, err := failsafe.With[*http.Response](c.streamRetry).WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.streamClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return nil, statusError(http.MethodGet, rawURL, resp)
		}
		return resp, nil
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var dst io.Writer = w
	if progress != nil {
		dst = &progressWriter{w: w, total: resp.ContentLength, report: progress}
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("stream %s: %w", rawURL, err)
	}
	return n, nil
}

type progressWriter struct {
	w      io.Writer
	total  int64
	report ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.report(int64(n), p.total)
	}
	return n, err
}
