// Package transport issues single HTTP GET requests against the movie APIs
// and classifies their outcome: a response with a status code, or a
// network-level error.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "cinema-by-the-numbers/1.0"
)

// ErrMalformed is wrapped by errors returned when a response body cannot be
// decoded into the expected structure.
var ErrMalformed = errors.New("malformed response")

// Config configures a Client.
type Config struct {
	// Timeout for individual requests (default: 20s).
	Timeout time.Duration

	// RateLimit caps requests per second. Zero means unlimited.
	RateLimit float64

	// UserAgent string (default: "cinema-by-the-numbers/1.0").
	UserAgent string

	// Transport allows injecting a custom round tripper (for tests).
	Transport http.RoundTripper
}

// Client performs GET requests with a per-request timeout and an optional
// request-rate ceiling. It never retries; retry policy belongs to callers.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

// New creates a Client from cfg, filling in defaults.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: cfg.UserAgent,
		logger:    slog.Default(),
	}
}

// Response is a completed HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into v. A decode failure wraps ErrMalformed.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// Get issues a GET to rawURL with the given headers and query parameters.
// Parameters are merged with any query already present in rawURL.
//
// A non-nil *Response is returned for every status code. A network-level
// failure is returned as *Error.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]string, params url.Values) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{URL: redact(u), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: redact(u), Err: fmt.Errorf("reading body: %w", err)}
	}

	c.logger.Debug("http get", "url", redact(u), "status", resp.StatusCode, "bytes", len(body))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// redact strips credentials passed as query parameters from log output.
func redact(u *url.URL) string {
	c := *u
	q := c.Query()
	for _, k := range []string{"apikey", "api_key"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
		}
	}
	c.RawQuery = q.Encode()
	return c.String()
}
