package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"bold-client-go/internal/model"
)

// ErrUpstream is wrapped when BOLD cannot be reached or answers with a
// non-2xx status.
var ErrUpstream = errors.New("bold upstream error")

const userAgent = "bold-client-go/1.0"

// Option configures a Client
type Option func(c *Client)

// WithBaseURL overrides DefaultBaseURL
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of the default http.Client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit caps outgoing requests per second. A zero or negative rps
// disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// Client issues GET requests against the BOLD service and returns raw
// payloads. Identical requests in flight at the same time share one round
// trip.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
}

// NewClient creates a Client with a 60s timeout and no rate limit
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL builds the request URL for a query without sending it
func (c *Client) URL(mode model.QueryMode, q *Query) (string, error) {
	return BuildURL(c.baseURL, mode, q)
}

// Fetch sends q and returns the raw payload
func (c *Client) Fetch(ctx context.Context, mode model.QueryMode, q *Query) ([]byte, error) {
	reqURL, err := c.URL(mode, q)
	if err != nil {
		return nil, err
	}
	WarnIfExpensive(mode, q)

	// the shared request outlives any single caller; each caller still
	// stops waiting when its own ctx is done
	flight := context.WithoutCancel(ctx)
	ch := c.group.DoChan(reqURL, func() (any, error) {
		return c.get(flight, reqURL)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: failed to fetch: %w", ErrUpstream, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("[BOLD] shared in-flight request", "mode", mode, "url", reqURL)
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: bold returned status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(body), 200))
	}

	slog.Debug("[BOLD] fetched", "url", reqURL, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
