package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Version is reported in the User-Agent header.
const Version = "0.1.0"

// maxBodyBytes caps how much of a response body is retained.
const maxBodyBytes = 4 << 20

// Observer is notified once per completed HTTP exchange, including retried
// attempts. status is 0 when no response was received.
type Observer func(method, pathTemplate string, status int, d time.Duration)

// Requester issues one logical request. *Client implements it; tests and
// offline tooling substitute their own.
type Requester interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Client is the HTTP transport for the profile API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       *zap.Logger
	observer     Observer
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// NewClient creates a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("transport: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("transport: base URL scheme must be http or https, got %q", parsed.Scheme)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		userAgent:    "profilecheck/" + Version,
		logger:       zap.NewNop(),
		retryMax:     2,
		retryWaitMin: 200 * time.Millisecond,
		retryWaitMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs req with retry on network errors and gateway failures
// (502, 503, 504). When retries are exhausted on a gateway failure the last
// response is returned without error so the caller can classify it;
// network failures are returned as *Error.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	path, err := req.Path()
	if err != nil {
		return Response{}, err
	}
	fullURL := c.baseURL + path
	if q := req.Query.Encode(); q != "" {
		fullURL += "?" + q
	}

	var (
		resp     Response
		attempts int
	)
	operation := func() error {
		attempts++
		r, err := c.once(ctx, method, fullURL, req.PathTemplate)
		if err != nil {
			c.logger.Warn("request failed", zap.String("url", fullURL), zap.Error(err))
			return err
		}
		resp = r
		if retryableStatus(r.StatusCode) {
			return &gatewayError{status: r.StatusCode}
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying request",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.String("url", fullURL),
			zap.Error(err),
		)
	}

	err = backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(c.backOff(), uint64(c.retryMax)), ctx), notify)
	var gw *gatewayError
	switch {
	case err == nil:
		return resp, nil
	case errors.As(err, &gw):
		return resp, nil
	}
	return Response{}, &Error{Method: method, URL: fullURL, Attempts: attempts, Err: err}
}

// gatewayError marks a response whose status is worth retrying.
type gatewayError struct{ status int }

func (e *gatewayError) Error() string {
	return fmt.Sprintf("gateway status %d", e.status)
}

// backOff is exponential from retryWaitMin with 25% jitter, each wait
// capped near retryWaitMax. The attempt count is bounded by the caller.
func (c *Client) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWaitMin
	b.MaxInterval = c.retryWaitMax
	b.Multiplier = 2
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (c *Client) once(ctx context.Context, method, fullURL, pathTemplate string) (Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return Response{}, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(method, pathTemplate, 0, time.Since(start))
		return Response{}, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	duration := time.Since(start)
	c.observe(method, pathTemplate, httpResp.StatusCode, duration)
	if err != nil {
		return Response{}, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug("response",
		zap.String("method", method),
		zap.String("url", fullURL),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("duration", duration),
		zap.String("request_id", requestID),
	)

	return Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Duration:   duration,
		RequestID:  requestID,
	}, nil
}

func (c *Client) observe(method, pathTemplate string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer(method, pathTemplate, status, d)
	}
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
