package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/rs/zerolog"

	"github.com/Belphemur/SubtitleRipper/internal/apperrors"
	"github.com/Belphemur/SubtitleRipper/internal/cache"
	"github.com/Belphemur/SubtitleRipper/internal/config"
)

// maxErrorBody bounds how much of a failed response is kept for diagnostics.
const maxErrorBody = 64 << 10

// RequestOptions tunes a single request.
type RequestOptions struct {
	Headers map[string]string
	Query   url.Values
	// Body is resent as-is on every retry attempt.
	Body []byte
	// Cache serves and stores successful GET bodies through the response cache.
	Cache bool
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
	Cached     bool
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &apperrors.ErrUnexpectedResponse{URL: r.URL, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// Client is the HTTP wrapper shared by extractors and download workers.
// It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	userAgent    string
	cache        cache.Cache
	logger       zerolog.Logger

	bufferedRetry retrypolicy.RetryPolicy[*Response]
	streamRetry   retrypolicy.RetryPolicy[*http.Response]
}

// Option customizes a Client.
type Option func(*Client)

// WithCache enables the GET response cache for requests that ask for it.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithCookies attaches a cookie jar to every request.
func WithCookies(jar http.CookieJar) Option {
	return func(cl *Client) {
		cl.httpClient.Jar = jar
		cl.streamClient.Jar = jar
	}
}

// WithLogger sets the logger used for request tracing and retries.
func WithLogger(logger zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// New builds a Client from configuration: timeout, proxy, optional browser TLS
// fingerprint, compression and metrics transports, and the retry policy.
func New(cfg *config.Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger := config.GetLogger()
	timeout := config.ParseDuration(cfg.ClientTimeout, 10*time.Second)

	// Clone DefaultTransport to keep its pooling and HTTP/2 settings
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.ResponseHeaderTimeout = timeout

	httpProxy := false
	if cfg.ProxyConnectionString != "" {
		if err := applyProxy(base, cfg.ProxyConnectionString); err != nil {
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy, continuing without proxy")
		} else {
			httpProxy = base.Proxy != nil
		}
	}

	var transport http.RoundTripper = base
	if cfg.Client.BrowserTLS {
		if httpProxy {
			logger.Warn().Msg("Browser TLS fingerprint is not available through an HTTP proxy, using the default TLS stack")
		} else {
			transport = newFingerprintTransport(base)
		}
	}
	transport = newInstrumentedTransport(newCompressionTransport(transport))

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: timeout, Transport: transport},
		streamClient: &http.Client{Transport: transport},
		userAgent:    userAgent,
		logger:       logger.With().Str("component", "http_client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	backoff := config.ParseDuration(cfg.Retry.Backoff, 5*time.Second)
	maxBackoff := config.ParseDuration(cfg.Retry.MaxBackoff, 2*time.Minute)
	maxRetries := cfg.Retry.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	c.bufferedRetry = newRetryPolicy[*Response](maxRetries, backoff, maxBackoff, c.logger)
	c.streamRetry = newRetryPolicy[*http.Response](maxRetries, backoff, maxBackoff, c.logger)

	return c
}

// Cookie returns the value of the named cookie the jar would send to rawURL.
func (c *Client) Cookie(rawURL, name string) string {
	if c.httpClient.Jar == nil {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// Close releases the response cache and idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	if c.cache != nil {
		return c.cache.Close()
	}
	return nil
}

func validateMethod(method string) error {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return nil
	default:
		return &apperrors.ErrUnsupportedMethod{Method: method}
	}
}

// Request performs method on rawURL, retrying transport failures, 429 and 5xx
// with exponential backoff. A non-success final status is an *apperrors.ErrHTTPStatus.
func (c *Client) Request(ctx context.Context, method, rawURL string, opts RequestOptions) (*Response, error) {
	if err := validateMethod(method); err != nil {
		return nil, err
	}

	target, err := withQuery(rawURL, opts.Query)
	if err != nil {
		return nil, err
	}

	cacheable := opts.Cache && method == http.MethodGet && c.cache != nil
	key := cache.Key(method, target)
	if cacheable {
		if body, ok := c.cache.Get(key); ok {
			c.logger.Debug().Str("url", target).Msg("Serving response from cache")
			return &Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: body, URL: target, Cached: true}, nil
		}
	}

	resp, err := failsafe.With[*Response](c.bufferedRetry).WithContext(ctx).Get(func() (*Response, error) {
		return c.do(ctx, method, target, opts)
	})
	if err != nil {
		return nil, err
	}

	if cacheable {
		c.cache.Set(key, resp.Body)
	}
	return resp, nil
}

// JSON performs the request and decodes the JSON body into v.
func (c *Client) JSON(ctx context.Context, method, rawURL string, opts RequestOptions, v any) error {
	resp, err := c.Request(ctx, method, rawURL, opts)
	if err != nil {
		return err
	}
	return resp.DecodeJSON(v)
}

// Text performs the request and returns the body as a string.
func (c *Client) Text(ctx context.Context, method, rawURL string, opts RequestOptions) (string, error) {
	resp, err := c.Request(ctx, method, rawURL, opts)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *Client) do(ctx context.Context, method, target string, opts RequestOptions) (*Response, error) {
	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := c.newRequest(ctx, method, target, body, opts.Headers)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("method", method).Str("url", target).Msg("Sending request")
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, statusError(method, target, httpResp)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		URL:        target,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", target, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func statusError(method, target string, resp *http.Response) *apperrors.ErrHTTPStatus {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &apperrors.ErrHTTPStatus{
		Method:     method,
		URL:        target,
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}

func withQuery(rawURL string, query url.Values) (string, error) {
	if len(query) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	q := u.Query()
	for k, values := range query {
		for _, v := range values {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// PrettyBody renders an error body for logs, re-indenting it when it is JSON.
func PrettyBody(body []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err == nil {
		return out.String()
	}
	return string(body)
}
