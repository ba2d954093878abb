package fetcher

import (
	"log/slog"
	"net/http"
	"time"

	"resty.dev/v3"
)

const (
	// Default retry configuration
	defaultMaxAttempts      = 3
	defaultRetryWaitTime    = 2 * time.Second
	defaultRetryMaxWaitTime = 5 * time.Second
	defaultTimeout          = 10 * time.Second

	// DefaultUserAgent is a realistic desktop browser string; the quote site
	// rejects requests without one.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Options configures the HTTP client used for quote pages.
type Options struct {
	BaseURL          string
	UserAgent        string
	Timeout          time.Duration
	MaxAttempts      int
	RetryWaitTime    time.Duration
	RetryMaxWaitTime time.Duration

	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// DefaultOptions returns the production settings for baseURL.
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:          baseURL,
		UserAgent:        DefaultUserAgent,
		Timeout:          defaultTimeout,
		MaxAttempts:      defaultMaxAttempts,
		RetryWaitTime:    defaultRetryWaitTime,
		RetryMaxWaitTime: defaultRetryMaxWaitTime,
	}
}

// NewHTTPClient creates a new HTTP client with retry logic and exponential backoff.
// Only transport failures are retried; any HTTP status is returned to the caller
// on the first attempt.
func NewHTTPClient(opts Options) *resty.Client {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.MaxAttempts - 1).
		SetRetryWaitTime(opts.RetryWaitTime).
		SetRetryMaxWaitTime(opts.RetryMaxWaitTime).
		SetRetryDefaultConditions(false).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	if opts.Transport != nil {
		client.SetTransport(opts.Transport)
	}

	return client
}

// retryCondition retries transport errors only. Status codes, including 5xx
// and 429, are surfaced immediately as HttpError.
func retryCondition(_ *resty.Response, err error) bool {
	return IsTransient(err)
}

// retryHook logs retry attempts for observability
func retryHook(r *resty.Response, err error) {
	if r == nil || r.Request == nil {
		slog.Debug("retrying request", "error", err)
		return
	}

	slog.Debug("retrying request due to error",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"error", err)
}
