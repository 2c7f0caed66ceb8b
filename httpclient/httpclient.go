// Package httpclient provides an http.Client wrapper with retry and
// backoff for the transient failures LLM and tool-server APIs return
// (rate limits, gateway errors).
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RetryableError is returned when retries are exhausted. RetryAfter
// carries the delay the caller would have to wait for the next attempt.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

func (e *RetryableError) Unwrap() error { return e.Err }

type Client struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	sleep      func(time.Duration)
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

func New(opts ...Option) *Client {
	client := &Client{
		client:     &http.Client{Timeout: 60 * time.Second},
		maxRetries: 3,
		baseDelay:  1 * time.Second,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func retryable(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Do issues the request, retrying on retryable status codes. The request
// must have GetBody set for retries to replay the body; requests built
// with http.NewRequest from a bytes.Reader satisfy this.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Network errors are not retried; the caller decides.
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
		} else {
			return resp, nil
		}

		if !retryable(resp.StatusCode) {
			return resp, lastErr
		}
		lastResp = resp

		if attempt >= c.maxRetries {
			break
		}

		delay := c.delayFor(attempt, resp)
		resp.Body.Close()
		slog.Debug("retrying request",
			"status", resp.StatusCode, "delay", delay,
			"attempt", attempt+1, "max", c.maxRetries)
		c.sleep(delay)
	}

	return lastResp, &RetryableError{
		StatusCode: lastResp.StatusCode,
		Message:    fmt.Sprintf("max HTTP retries (%d) exceeded", c.maxRetries),
		RetryAfter: c.baseDelay,
		Err:        lastErr,
	}
}

func (c *Client) delayFor(attempt int, resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
}
