package apix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrorCode is the closed taxonomy every failure is coerced into. Callers
// branch on these values; no other failure kind reaches the public boundary.
type ErrorCode string

const (
	CodeNetworkError    ErrorCode = "NETWORK_ERROR"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeAborted         ErrorCode = "ABORTED"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeForbidden       ErrorCode = "FORBIDDEN"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeConflict        ErrorCode = "CONFLICT"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
	CodeServerError     ErrorCode = "SERVER_ERROR"
	CodeUnknown         ErrorCode = "UNKNOWN"
)

// RetriableCode reports whether an error code represents a failure that may
// succeed on a plain retry. Retriability is a pure function of the code; it is
// never set ad hoc on individual errors.
func RetriableCode(code ErrorCode) bool {
	switch code {
	case CodeNetworkError, CodeTimeout, CodeRateLimited, CodeServerError:
		return true
	default:
		return false
	}
}

// APIError is the single failure value surfaced by every operation.
type APIError struct {
	Code          ErrorCode
	Message       string
	Retriable     bool
	Details       any
	CorrelationID string
	StatusCode    int

	// RetryAfter is the server-provided delay hint (Retry-After header),
	// zero when the server sent none.
	RetryAfter time.Duration

	// Cause is the underlying transport error, if any.
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.CorrelationID != "" {
		msg = fmt.Sprintf("[%s] %s", e.CorrelationID, msg)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error codes for errors.Is.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*APIError); ok {
		return e.Code == targetErr.Code
	}
	return false
}

// IsTransient reports whether err is an APIError that may succeed on retry.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retriable
	}
	return false
}

// newError builds an APIError with Retriable derived from the code.
func newError(code ErrorCode, message, correlationID string) *APIError {
	return &APIError{
		Code:          code,
		Message:       message,
		Retriable:     RetriableCode(code),
		CorrelationID: correlationID,
	}
}

// codeForStatus maps a non-2xx HTTP status onto the taxonomy.
func codeForStatus(status int) ErrorCode {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return CodeValidationError
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status >= 500 && status < 600:
		return CodeServerError
	default:
		return CodeUnknown
	}
}

// normalizeTransport coerces a transport-level failure (the request never
// produced a response) into an APIError. Dispatch order: caller cancellation,
// then timeout, then network, then unknown.
func normalizeTransport(ctx context.Context, err error, correlationID string) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case ctx.Err() == context.Canceled || errors.Is(err, context.Canceled):
		e := newError(CodeAborted, "request aborted", correlationID)
		e.Cause = err
		return e
	case errors.Is(err, context.DeadlineExceeded):
		e := newError(CodeTimeout, "request timed out", correlationID)
		e.Cause = err
		return e
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		e := newError(CodeTimeout, "request timed out", correlationID)
		e.Cause = err
		return e
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || isNetworkError(err) {
		e := newError(CodeNetworkError, "network request failed", correlationID)
		e.Cause = err
		return e
	}

	e := newError(CodeUnknown, err.Error(), correlationID)
	e.Cause = err
	return e
}

func isNetworkError(err error) bool {
	var netErr net.Error
	var opErr *net.OpError
	return errors.As(err, &netErr) || errors.As(err, &opErr)
}

// normalizeStatus coerces a non-2xx response into an APIError. The message is
// taken from the body's detail, message or error field (in that order) when
// the body is JSON; the full parsed body (or raw text) is kept in Details.
func normalizeStatus(status int, header http.Header, body []byte, correlationID string) *APIError {
	e := newError(codeForStatus(status), "", correlationID)
	e.StatusCode = status
	e.RetryAfter = parseRetryAfter(header.Get("Retry-After"))

	if len(body) > 0 {
		if isJSONContentType(header.Get("Content-Type")) {
			var parsed any
			if err := json.Unmarshal(body, &parsed); err == nil {
				e.Details = parsed
				e.Message = extractMessage(parsed)
			} else {
				e.Details = string(body)
			}
		} else {
			e.Details = string(body)
		}
	}

	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status %d", status)
	}
	return e
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		// Optimistically treat a missing declaration as JSON; the parse
		// falls back to raw text on failure.
		return true
	}
	mediaType := strings.TrimSpace(strings.Split(ct, ";")[0])
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// extractMessage pulls a human message out of a parsed error body, trying the
// detail, message and error fields in order.
func extractMessage(parsed any) string {
	obj, ok := parsed.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// parseRetryAfter parses a Retry-After header value, supporting both the
// delay-seconds and HTTP-date formats. The result is capped at one hour.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if seconds > 0 {
			delay := time.Duration(seconds) * time.Second
			if delay > time.Hour {
				delay = time.Hour
			}
			return delay
		}
		return 0
	}

	if t, err := http.ParseTime(value); err == nil {
		delay := time.Until(t)
		if delay > 0 && delay <= time.Hour {
			return delay
		}
	}

	return 0
}
