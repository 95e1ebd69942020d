// Package fetch retrieves userscript and dependency text over HTTPS.
//
// The client is deliberately strict: https only, bounded body size, and a
// content-type check so an HTML error page never ends up installed as a
// script. Transient-failure retry cadence comes from the auto-updater, not
// from this layer, so request retries stay disabled.
package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/resilience"
)

// Config controls fetcher behavior.
type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// DefaultConfig matches the documented fetch contract: 30s timeout, 10 MiB
// cap, identifying client label.
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		MaxBytes:  10 << 20,
		UserAgent: "GeoGuessrDesktop/1.0",
	}
}

// Fetcher retrieves remote script text with validation limits.
type Fetcher struct {
	client   *resty.Client
	limiter  *rate.Limiter
	breaker  *resilience.Breaker
	maxBytes int64
}

// New creates a fetcher with rate limiting and circuit breaker protection.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10 << 20
	}

	// Transport from retryablehttp for its connection hygiene; retries off.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetDoNotParseResponse(true).
		SetTransport(retryClient.HTTPClient.Transport)

	breaker := resilience.New("script-fetch", resilience.Settings{
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
	})

	return &Fetcher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Inf, 0),
		breaker:  breaker,
		maxBytes: cfg.MaxBytes,
	}
}

// SetRateLimit configures request pacing (requests per second; <=0 removes
// the limit).
func (f *Fetcher) SetRateLimit(rps float64) {
	if rps <= 0 {
		f.limiter = rate.NewLimiter(rate.Inf, 0)
		return
	}
	f.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
}

// SetTransport swaps the underlying transport. Used by tests to stub the
// network.
func (f *Fetcher) SetTransport(rt http.RoundTripper) {
	f.client.SetTransport(rt)
}

// BreakerState exposes the circuit breaker state.
func (f *Fetcher) BreakerState() resilience.State {
	return f.breaker.State()
}

// Fetch performs a validated GET and returns the body text unmodified.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, "https://") {
		return "", ErrInsecureURL
	}

	if f.breaker.State() == resilience.StateOpen {
		return "", resilience.ErrCircuitOpen
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return "", &NetworkError{Err: err}
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx, url)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", classifyTransport(url, err)
	}

	raw := resp.RawBody()
	defer raw.Close()

	if code := resp.StatusCode(); code < 200 || code > 299 {
		return "", &StatusError{Code: code, Reason: http.StatusText(code)}
	}

	if ct := resp.Header().Get("Content-Type"); ct != "" {
		if !strings.Contains(ct, "javascript") && !strings.Contains(ct, "text/plain") {
			return "", &ContentTypeError{ContentType: ct}
		}
	}

	// Read at most maxBytes+1 so an oversized body is rejected without
	// buffering the whole thing.
	body, err := io.ReadAll(io.LimitReader(raw, f.maxBytes+1))
	if err != nil {
		return "", classifyTransport(url, err)
	}
	if int64(len(body)) > f.maxBytes {
		return "", ErrTooLarge
	}

	return string(body), nil
}

func classifyTransport(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return ErrTimeout
	}
	var operr *net.OpError
	if errors.As(err, &operr) {
		return &ConnectError{URL: url, Err: err}
	}
	return &NetworkError{Err: err}
}
