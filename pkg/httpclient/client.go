// Package httpclient provides an HTTP client with bounded, rate-limit aware
// retries. Retries apply only to transient failures; permanent failures are
// surfaced immediately so callers can decide on fallback.
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

type RetryStrategy int

const (
	NoRetry RetryStrategy = iota
	SmartRetry
)

type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetTime         int64
	RequestsRemaining int
	TokensRemaining   int
}

type RateLimitHeaderParser func(http.Header) RateLimitInfo

type RetryStrategyFunc func(int) RetryStrategy

// AttemptObserver is invoked after every attempt, successful or not. Attempts
// are numbered from 1.
type AttemptObserver func(attempt int, latency time.Duration, err error)

type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	multiplier   float64
	headerParser RateLimitHeaderParser
	strategyFunc RetryStrategyFunc
	observer     AttemptObserver
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithMaxRetries(max int) Option {
	return func(c *Client) {
		c.maxRetries = max
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

// WithBackoffMultiplier sets the factor applied between consecutive delays.
func WithBackoffMultiplier(m float64) Option {
	return func(c *Client) {
		c.multiplier = m
	}
}

func WithHeaderParser(parser RateLimitHeaderParser) Option {
	return func(c *Client) {
		c.headerParser = parser
	}
}

func WithRetryStrategy(strategyFunc RetryStrategyFunc) Option {
	return func(c *Client) {
		c.strategyFunc = strategyFunc
	}
}

func WithAttemptObserver(obs AttemptObserver) Option {
	return func(c *Client) {
		c.observer = obs
	}
}

func New(opts ...Option) *Client {
	client := &Client{
		client:       &http.Client{Timeout: 10 * time.Second},
		maxRetries:   2,
		baseDelay:    500 * time.Millisecond,
		multiplier:   3,
		strategyFunc: DefaultRetryStrategy,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// DefaultRetryStrategy retries rate limits, timeouts and server errors.
// Client errors (auth failures, malformed requests) are never retried.
func DefaultRetryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return SmartRetry
	default:
		return NoRetry
	}
}

// Do performs the request, retrying transient failures up to maxRetries
// times. The final error is a *RetryableError when the retry budget was
// exhausted and a *StatusError for non-retryable HTTP failures.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		start := time.Now()
		resp, strategy, retryInfo, err := c.attemptRequest(req)
		if c.observer != nil {
			c.observer(attempt+1, time.Since(start), err)
		}

		if err == nil {
			return resp, nil
		}
		lastErr = err

		if strategy == NoRetry {
			return resp, err
		}

		if err := req.Context().Err(); err != nil {
			return resp, err
		}

		if attempt >= c.maxRetries {
			statusCode := 0
			if resp != nil {
				statusCode = resp.StatusCode
			}
			return resp, &RetryableError{
				StatusCode: statusCode,
				Message:    fmt.Sprintf("max HTTP retries (%d) exceeded", c.maxRetries),
				Err:        lastErr,
			}
		}

		// The failed response is not returned to the caller; release its
		// connection before the next attempt.
		if resp != nil {
			resp.Body.Close()
		}

		delay := c.calculateDelay(attempt, retryInfo)
		slog.Debug("Retrying HTTP request", "attempt", attempt+1, "delay", delay)

		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			return resp, req.Context().Err()
		}
	}

	return nil, lastErr
}

func (c *Client) attemptRequest(req *http.Request) (*http.Response, RetryStrategy, RateLimitInfo, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			// Caller gave up; do not mask the context error.
			return nil, NoRetry, RateLimitInfo{}, err
		}
		// Transport-level failure (connection refused, per-attempt timeout).
		return nil, SmartRetry, RateLimitInfo{}, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, NoRetry, RateLimitInfo{}, nil
	}

	var retryInfo RateLimitInfo
	if c.headerParser != nil {
		retryInfo = c.headerParser(resp.Header)
	}

	strategy := c.strategyFunc(resp.StatusCode)

	return resp, strategy, retryInfo, &StatusError{Code: resp.StatusCode}
}

func (c *Client) calculateDelay(attempt int, retryInfo RateLimitInfo) time.Duration {
	if retryInfo.RetryAfter > 0 {
		return retryInfo.RetryAfter
	}

	if retryInfo.ResetTime > 0 {
		if delay := time.Until(time.Unix(retryInfo.ResetTime, 0)); delay > 0 {
			return delay
		}
	}

	return time.Duration(math.Pow(c.multiplier, float64(attempt)) * float64(c.baseDelay))
}
