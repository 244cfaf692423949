package apix

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient sets a custom underlying HTTP client. Its Timeout should be
// left zero: deadlines are enforced per attempt by the engine.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries sets the default number of retries after the initial attempt.
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// WithRetryDelay sets the default base delay between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxRetryDelay caps the delay between retries.
func WithMaxRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxRetryDelay = d
	}
}

// WithExponentialBackoff doubles the delay on every retry instead of using a
// constant one.
func WithExponentialBackoff() Option {
	return func(c *Client) {
		c.exponential = true
	}
}

// WithBackoffMultiplier sets the growth factor for exponential backoff.
func WithBackoffMultiplier(f float64) Option {
	return func(c *Client) {
		c.backoffMultiplier = f
	}
}

// WithJitter sets the jitter factor for backoff (0.0 to 1.0).
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.jitter = f
	}
}

// WithRetryPolicy replaces the default retry decision logic.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithIdempotentOnlyRetry restricts automatic retries to idempotent methods
// (GET, HEAD, PUT, DELETE, OPTIONS).
func WithIdempotentOnlyRetry() Option {
	return func(c *Client) {
		c.retryPolicy = NewIdempotentOnlyRetryPolicy()
	}
}

// WithRetryBudget caps retries across all calls at maxRetries per window.
func WithRetryBudget(maxRetries int, perWindow time.Duration) Option {
	return func(c *Client) {
		c.retryBudget = NewRetryBudget(maxRetries, perWindow)
	}
}

// WithRateLimiter gates outgoing attempts through a token bucket of rps
// requests per second with the given burst.
func WithRateLimiter(rps float64, burst int) Option {
	return func(c *Client) {
		c.rateLimiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTokenProvider sets the bearer token source for outgoing requests.
func WithTokenProvider(provider TokenProvider) Option {
	return func(c *Client) {
		c.tokenProvider = provider
	}
}

// WithOnError registers an observer invoked once per failed attempt.
func WithOnError(observer ErrorObserver) Option {
	return func(c *Client) {
		c.onError = observer
	}
}

// WithCorrelationIDGenerator replaces the random correlation-ID generator,
// e.g. with a deterministic one in tests.
func WithCorrelationIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.generateCorrelationID = gen
	}
}

// WithCorrelationIDHeader changes the header name carrying the correlation ID.
func WithCorrelationIDHeader(name string) Option {
	return func(c *Client) {
		c.correlationIDHeader = name
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for warnings and debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a plain console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		c.logger = NewSimpleLogger()
		c.debug = true
	}
}

// WithDebug enables per-attempt debug logging on the configured Logger.
func WithDebug() Option {
	return func(c *Client) {
		c.debug = true
	}
}

// callConfig holds the per-call overrides merged over client defaults.
type callConfig struct {
	body        any
	pathParams  PathParams
	queryParams QueryParams
	headers     map[string]string
	timeout     time.Duration
	retries     *int
	retryDelay  time.Duration
	exponential *bool
}

// CallOption configures a single call.
type CallOption func(*callConfig)

func newCallConfig(opts []CallOption) *callConfig {
	cfg := &callConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithBody sets the JSON request body. Ignored for GET.
func WithBody(body any) CallOption {
	return func(cfg *callConfig) {
		cfg.body = body
	}
}

// WithPathParams binds several {name} placeholders at once.
func WithPathParams(params PathParams) CallOption {
	return func(cfg *callConfig) {
		if cfg.pathParams == nil {
			cfg.pathParams = PathParams{}
		}
		for key, value := range params {
			cfg.pathParams[key] = value
		}
	}
}

// WithPathParam binds one {name} placeholder.
func WithPathParam(name string, value any) CallOption {
	return func(cfg *callConfig) {
		if cfg.pathParams == nil {
			cfg.pathParams = PathParams{}
		}
		cfg.pathParams[name] = value
	}
}

// WithQueryParams adds several query parameters at once.
func WithQueryParams(params QueryParams) CallOption {
	return func(cfg *callConfig) {
		if cfg.queryParams == nil {
			cfg.queryParams = QueryParams{}
		}
		for key, value := range params {
			cfg.queryParams[key] = value
		}
	}
}

// WithQuery adds one query parameter.
func WithQuery(key string, value any) CallOption {
	return func(cfg *callConfig) {
		if cfg.queryParams == nil {
			cfg.queryParams = QueryParams{}
		}
		cfg.queryParams[key] = value
	}
}

// WithHeaders adds per-call headers; they win over defaults on collision.
func WithHeaders(headers map[string]string) CallOption {
	return func(cfg *callConfig) {
		if cfg.headers == nil {
			cfg.headers = map[string]string{}
		}
		for key, value := range headers {
			cfg.headers[key] = value
		}
	}
}

// WithHeader adds one per-call header.
func WithHeader(key, value string) CallOption {
	return func(cfg *callConfig) {
		if cfg.headers == nil {
			cfg.headers = map[string]string{}
		}
		cfg.headers[key] = value
	}
}

// WithCallTimeout overrides the per-attempt timeout for this call.
func WithCallTimeout(d time.Duration) CallOption {
	return func(cfg *callConfig) {
		cfg.timeout = d
	}
}

// WithCallRetries overrides the retry count for this call.
func WithCallRetries(n int) CallOption {
	return func(cfg *callConfig) {
		cfg.retries = &n
	}
}

// WithCallRetryDelay overrides the base retry delay for this call.
func WithCallRetryDelay(d time.Duration) CallOption {
	return func(cfg *callConfig) {
		cfg.retryDelay = d
	}
}

// WithCallExponentialBackoff overrides the backoff shape for this call.
func WithCallExponentialBackoff(enabled bool) CallOption {
	return func(cfg *callConfig) {
		cfg.exponential = &enabled
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error aggregating every problem found.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateBaseConfig()...)
	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateObservabilityConfig()...)
	problems = append(problems, c.validateExtremeValues()...)

	if len(problems) > 0 {
		return fmt.Errorf("invalid client configuration: %v", problems)
	}
	return nil
}

func (c *Client) validateBaseConfig() []string {
	var problems []string

	if c.baseURL == "" {
		problems = append(problems, "baseURL must not be empty")
	}
	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if c.correlationIDHeader == "" {
		problems = append(problems, "correlationIDHeader must not be empty")
	}
	if c.generateCorrelationID == nil {
		problems = append(problems, "correlation ID generator cannot be nil")
	}

	return problems
}

func (c *Client) validateRetryConfig() []string {
	var problems []string

	if c.retries < 0 {
		problems = append(problems, "retries must be non-negative")
	}
	if c.retryDelay <= 0 {
		problems = append(problems, "retryDelay must be positive")
	}
	if c.maxRetryDelay < c.retryDelay {
		problems = append(problems, "maxRetryDelay must be greater than or equal to retryDelay")
	}
	if c.backoffMultiplier <= 0 {
		problems = append(problems, "backoffMultiplier must be positive")
	}
	if c.jitter < 0 || c.jitter > 1 {
		problems = append(problems, "jitter must be between 0 and 1")
	}
	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.retryPolicy == nil {
		problems = append(problems, "retry policy cannot be nil")
	}

	return problems
}

func (c *Client) validateObservabilityConfig() []string {
	var problems []string

	if c.debug && c.logger == nil {
		problems = append(problems, "logger must be set when debug is enabled")
	}

	return problems
}

func (c *Client) validateExtremeValues() []string {
	var problems []string

	if c.retries > 100 {
		problems = append(problems, "retries > 100 may cause excessive resource usage")
	}
	if c.retryDelay > 10*time.Minute {
		problems = append(problems, "retryDelay > 10m may cause very long delays")
	}
	if c.maxRetryDelay > time.Hour {
		problems = append(problems, "maxRetryDelay > 1h may cause extremely long delays")
	}
	if c.timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m may cause requests to hang for too long")
	}

	return problems
}
