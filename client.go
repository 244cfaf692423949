package apix

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultCorrelationIDHeader is the header carrying the per-call correlation
// ID unless overridden with WithCorrelationIDHeader.
const DefaultCorrelationIDHeader = "X-Request-ID"

// ErrorContext describes the attempt that produced an error, passed to the
// onError observer.
type ErrorContext struct {
	Method  string
	URL     string
	Body    any
	Attempt int
}

// ErrorObserver receives every normalized failure, once per attempt. It is a
// pure observation hook for logging, metrics and alerting; it never affects
// control flow.
type ErrorObserver func(err *APIError, ctx ErrorContext)

// Client is a resilient HTTP client bound to one base URL and default policy.
// It layers per-attempt timeouts, retries with backoff, token injection,
// correlation-ID tracing, rate limiting and metrics around the standard
// net/http Client, and maps every failure onto the closed ErrorCode taxonomy.
// It is immutable after construction and safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	timeout           time.Duration
	retries           int
	retryDelay        time.Duration
	maxRetryDelay     time.Duration
	exponential       bool
	backoffMultiplier float64
	jitter            float64

	retryPolicy RetryPolicy
	retryBudget *RetryBudget
	rateLimiter *rate.Limiter

	tokenProvider         TokenProvider
	onError               ErrorObserver
	generateCorrelationID func() string
	correlationIDHeader   string

	metrics *MetricsCollector
	logger  Logger
	debug   bool

	validationError error
}

// New constructs a Client for the given base URL (trailing slash stripped)
// using the provided functional options. A best effort validation is
// performed; call IsValid / ValidationError for errors.
func New(baseURL string, options ...Option) *Client {
	client := &Client{
		baseURL:               strings.TrimRight(baseURL, "/"),
		httpClient:            &http.Client{},
		timeout:               30 * time.Second,
		retries:               0,
		retryDelay:            time.Second,
		maxRetryDelay:         30 * time.Second,
		exponential:           false,
		backoffMultiplier:     2.0,
		jitter:                0,
		retryPolicy:           NewDefaultRetryPolicy(),
		generateCorrelationID: DefaultCorrelationIDGenerator,
		correlationIDHeader:   DefaultCorrelationIDHeader,
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// DefaultCorrelationIDGenerator produces an opaque random request identifier.
func DefaultCorrelationIDGenerator() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "req-" + strings.ReplaceAll(time.Now().Format("150405.000000"), ".", "")
	}
	return "req-" + hex.EncodeToString(buf)
}

// Get performs a typed GET. The path may contain {name} placeholders bound
// through WithPathParam / WithPathParams.
func Get[T any](ctx context.Context, c *Client, path string, opts ...CallOption) Result[T] {
	return Do[T](ctx, c, http.MethodGet, path, opts...)
}

// Post performs a typed POST with a JSON body.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) Result[T] {
	return Do[T](ctx, c, http.MethodPost, path, append(opts, WithBody(body))...)
}

// Put performs a typed PUT with a JSON body.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) Result[T] {
	return Do[T](ctx, c, http.MethodPut, path, append(opts, WithBody(body))...)
}

// Patch performs a typed PATCH with a JSON body.
func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...CallOption) Result[T] {
	return Do[T](ctx, c, http.MethodPatch, path, append(opts, WithBody(body))...)
}

// Delete performs a DELETE whose response body is discarded. Use Do for a
// typed DELETE response.
func Delete(ctx context.Context, c *Client, path string, opts ...CallOption) Result[Empty] {
	return Do[Empty](ctx, c, http.MethodDelete, path, opts...)
}

// Do executes a request with an explicit method and decodes the success body
// into T. It never returns an error or panics: every exit path produces a
// Result.
func Do[T any](ctx context.Context, c *Client, method, path string, opts ...CallOption) Result[T] {
	cfg := newCallConfig(opts)

	body, correlationID, apiErr := c.execute(ctx, method, path, cfg)
	if apiErr != nil {
		return Fail[T](apiErr)
	}

	var out T
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			e := newError(CodeUnknown, "failed to decode response body", correlationID)
			e.Cause = err
			e.Details = string(body)
			return Fail[T](e)
		}
	}
	return Succeed[T](out)
}

// execute runs the attempt loop and returns the raw success body. One
// correlation ID covers every attempt of the logical call.
func (c *Client) execute(ctx context.Context, method, path string, cfg *callConfig) ([]byte, string, *APIError) {
	start := time.Now()
	correlationID := c.generateCorrelationID()
	fullURL := c.buildURL(path, cfg.pathParams, cfg.queryParams)
	endpoint := endpointFromURL(fullURL)

	timeout := c.timeout
	if cfg.timeout > 0 {
		timeout = cfg.timeout
	}
	retryCfg := RetryConfig{
		MaxRetries:  c.retries,
		Delay:       c.retryDelay,
		MaxDelay:    c.maxRetryDelay,
		Exponential: c.exponential,
		Multiplier:  c.backoffMultiplier,
		Jitter:      c.jitter,
	}
	if cfg.retries != nil {
		retryCfg.MaxRetries = *cfg.retries
	}
	if retryCfg.MaxRetries < 0 {
		retryCfg.MaxRetries = 0
	}
	if cfg.retryDelay > 0 {
		retryCfg.Delay = cfg.retryDelay
	}
	if cfg.exponential != nil {
		retryCfg.Exponential = *cfg.exponential
	}

	var bodyBytes []byte
	if method != http.MethodGet && cfg.body != nil {
		encoded, err := json.Marshal(cfg.body)
		if err != nil {
			e := newError(CodeUnknown, "failed to encode request body", correlationID)
			e.Cause = err
			return nil, correlationID, e
		}
		bodyBytes = encoded
	}

	headers := c.buildHeaders(ctx, correlationID, cfg.headers)

	if c.debug && c.logger != nil {
		c.logger.Debug("starting request", "correlationId", correlationID, "method", method, "url", fullURL)
	}
	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)

	var lastErr *APIError
	lastStatus := 0
	for attempt := 1; attempt <= retryCfg.MaxRetries+1; attempt++ {
		if attempt > 1 {
			c.metrics.RecordRetry(method, endpoint, attempt-1)
		}

		body, status, err := c.attempt(ctx, method, fullURL, headers, bodyBytes, timeout, correlationID)
		if err == nil {
			c.metrics.RecordRequest(method, endpoint, status, time.Since(start))
			return body, correlationID, nil
		}

		lastErr = err
		if err.StatusCode > 0 {
			lastStatus = err.StatusCode
		}
		c.metrics.RecordError(err.Code, method, endpoint)
		c.notifyError(err, ErrorContext{Method: method, URL: fullURL, Body: cfg.body, Attempt: attempt})

		delay, retry := c.retryPolicy.ShouldRetry(method, err, attempt, retryCfg)
		if !retry {
			break
		}
		if c.retryBudget != nil && !c.retryBudget.Allow() {
			c.metrics.RecordRetryBudgetExceeded(endpoint)
			if c.logger != nil {
				c.logger.Warn("retry budget exhausted", "correlationId", correlationID, "endpoint", endpoint)
			}
			break
		}
		if c.debug && c.logger != nil {
			c.logger.Info("scheduling retry", "correlationId", correlationID, "attempt", attempt+1, "backoff", delay, "endpoint", endpoint)
		}
		if !sleepContext(ctx, delay) {
			aborted := newError(CodeAborted, "request aborted", correlationID)
			aborted.Cause = ctx.Err()
			lastErr = aborted
			break
		}
	}

	c.metrics.RecordRequest(method, endpoint, lastStatus, time.Since(start))
	return nil, correlationID, lastErr
}

// attempt issues one network call under its own timeout scope.
func (c *Client) attempt(ctx context.Context, method, fullURL string, headers http.Header, body []byte, timeout time.Duration, correlationID string) ([]byte, int, *APIError) {
	attemptCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	if c.rateLimiter != nil {
		waitStart := time.Now()
		if err := c.rateLimiter.Wait(attemptCtx); err != nil {
			return nil, 0, normalizeTransport(ctx, err, correlationID)
		}
		c.metrics.RecordRateLimiterWait(time.Since(waitStart))
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, fullURL, reader)
	if err != nil {
		e := newError(CodeUnknown, "failed to build request", correlationID)
		e.Cause = err
		return nil, 0, e
	}
	req.Header = headers.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, normalizeTransport(ctx, err, correlationID)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, resp.StatusCode, normalizeTransport(ctx, readErr, correlationID)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, normalizeStatus(resp.StatusCode, resp.Header, respBody, correlationID)
	}
	return respBody, resp.StatusCode, nil
}

// notifyError invokes the onError observer, containing any panic so the
// never-throws contract of the public surface holds.
func (c *Client) notifyError(err *APIError, errCtx ErrorContext) {
	if c.onError == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	c.onError(err, errCtx)
}

// sleepContext waits for d or until the context is done, reporting whether
// the full delay elapsed.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// endpointFromURL extracts a host+path label for metrics.
func endpointFromURL(fullURL string) string {
	u, err := url.Parse(fullURL)
	if err != nil {
		return "unknown"
	}
	endpoint := u.Host
	if u.Path != "" && u.Path != "/" {
		endpoint += u.Path
	} else {
		endpoint += "/"
	}
	return endpoint
}
