// Package apix provides a resilient, typed HTTP request core for talking to
// JSON backends:
//
//   - Every call returns a Result[T] — no error or panic crosses the public boundary
//   - A closed error taxonomy (ErrorCode) with a fixed retriable/terminal mapping
//   - Retries with fixed or exponential backoff, Retry-After aware
//   - Per-attempt timeouts and caller cancellation (cancellation is terminal)
//   - Bearer token injection with fail-open token providers
//   - Correlation-ID tracing shared across retries of one logical call
//   - Optional token bucket rate limiting, retry budgets, Prometheus metrics
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Immutable *Client, safe for concurrent use
//   - Deterministic behavior: retriability is a pure function of the error code
//
// Typical usage:
//
//	client := apix.New("https://api.example.com",
//	    apix.WithRetries(2),
//	    apix.WithRetryDelay(200*time.Millisecond),
//	    apix.WithExponentialBackoff(),
//	    apix.WithTokenProvider(apix.StaticTokenProvider("tok")),
//	)
//	res := apix.Get[User](ctx, client, "/users/{id}",
//	    apix.WithPathParam("id", 123),
//	)
//	if !res.OK {
//	    // res.Err.Code is one of the closed ErrorCode set
//	}
//
// The library avoids opinionated logging: provide a Logger (e.g. via
// WithSimpleLogger) and enable WithDebug for per-attempt insight without noise.
package apix
