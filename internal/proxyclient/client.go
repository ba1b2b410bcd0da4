// Package proxyclient fetches upstream playlists and media segments
// on the proxy's behalf: a shared http.Client with HTTP/2 transport,
// a bounded upstream-fetch timeout, and a concurrency semaphore,
// instrumented with OpenTelemetry.
package proxyclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ManuGH/hlsgate/internal/apierror"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config controls the shared client's resource limits.
type Config struct {
	// Timeout bounds each upstream request (default 30s per the
	// concurrency model).
	Timeout time.Duration
	// MaxConcurrency caps in-flight upstream fetches process-wide
	// (0 disables the cap).
	MaxConcurrency int64
	// RateLimitPerSecond caps the rate of upstream fetch starts
	// (0 disables the limiter).
	RateLimitPerSecond float64
}

// Client performs the two upstream fetch shapes the proxy needs: a
// full-body GET for playlists and init segments, and a GET with an
// optional Range header for media segments.
type Client struct {
	http    *http.Client
	timeout time.Duration
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// New constructs a Client. The underlying *http.Client is safe for
// concurrent use by every request goroutine; it owns its own
// connection pool and is never recreated per-request.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	c := &Client{
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport),
		},
		timeout: timeout,
	}
	if cfg.MaxConcurrency > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxConcurrency)
	}
	if cfg.RateLimitPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), int(cfg.RateLimitPerSecond)+1)
	}
	return c
}

// Result is a fetched upstream body together with the response
// headers useful to the caller (content type, in particular).
type Result struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// Get performs an upstream GET, attaching headers verbatim and an
// optional HTTP Range. A 206 Partial Content response is treated as
// success, matching the upstream-success policy. Any status other
// than 200 or 206 yields a FetchFailed error; context deadline/timeout yields
// FetchTimeout.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string, httpRange string) (*Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apierror.Wrap(apierror.KindFetchTimeout, err, "rate limiter wait for %s", url)
		}
	}
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, apierror.Wrap(apierror.KindFetchTimeout, err, "concurrency wait for %s", url)
		}
		defer c.sem.Release(1)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindInvalidURL, err, "build request for %s", url)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if httpRange != "" {
		req.Header.Set("Range", httpRange)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apierror.Wrap(apierror.KindFetchTimeout, err, "timed out fetching %s", url)
		}
		return nil, apierror.Wrap(apierror.KindFetchFailed, err, "fetching %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, apierror.New(apierror.KindFetchFailed, "upstream %s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apierror.Wrap(apierror.KindFetchTimeout, err, "timed out reading body from %s", url)
		}
		return nil, apierror.Wrap(apierror.KindFetchFailed, err, "reading body from %s", url)
	}

	return &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}
