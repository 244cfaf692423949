package apix

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestCodeForStatusTable(t *testing.T) {
	tests := []struct {
		status    int
		code      ErrorCode
		retriable bool
	}{
		{400, CodeValidationError, false},
		{422, CodeValidationError, false},
		{401, CodeUnauthorized, false},
		{403, CodeForbidden, false},
		{404, CodeNotFound, false},
		{409, CodeConflict, false},
		{429, CodeRateLimited, true},
		{500, CodeServerError, true},
		{502, CodeServerError, true},
		{503, CodeServerError, true},
		{418, CodeUnknown, false},
	}

	for _, tt := range tests {
		err := normalizeStatus(tt.status, http.Header{}, nil, "cid")
		if err.Code != tt.code {
			t.Errorf("status %d: code = %s, want %s", tt.status, err.Code, tt.code)
		}
		if err.Retriable != tt.retriable {
			t.Errorf("status %d: retriable = %v, want %v", tt.status, err.Retriable, tt.retriable)
		}
		if err.StatusCode != tt.status {
			t.Errorf("status %d: StatusCode = %d", tt.status, err.StatusCode)
		}
		if err.CorrelationID != "cid" {
			t.Errorf("status %d: CorrelationID = %q", tt.status, err.CorrelationID)
		}
	}
}

func TestNormalizeStatusMessageExtraction(t *testing.T) {
	jsonHeader := http.Header{"Content-Type": []string{"application/json"}}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail wins", `{"detail":"d","message":"m","error":"e"}`, "d"},
		{"message second", `{"message":"m","error":"e"}`, "m"},
		{"error third", `{"error":"e"}`, "e"},
		{"fallback", `{"other":"x"}`, "request failed with status 400"},
		{"non-object body", `["a"]`, "request failed with status 400"},
		{"empty body", ``, "request failed with status 400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := normalizeStatus(400, jsonHeader, []byte(tt.body), "cid")
			if err.Message != tt.want {
				t.Errorf("message = %q, want %q", err.Message, tt.want)
			}
		})
	}
}

func TestNormalizeStatusDetails(t *testing.T) {
	jsonHeader := http.Header{"Content-Type": []string{"application/json"}}

	err := normalizeStatus(409, jsonHeader, []byte(`{"detail":"conflict","field":"name"}`), "cid")
	obj, ok := err.Details.(map[string]any)
	if !ok {
		t.Fatalf("Expected parsed details map, got %T", err.Details)
	}
	if obj["field"] != "name" {
		t.Errorf("Expected full parsed body in details, got %v", obj)
	}

	textHeader := http.Header{"Content-Type": []string{"text/plain"}}
	err = normalizeStatus(500, textHeader, []byte("boom"), "cid")
	if err.Details != "boom" {
		t.Errorf("Expected raw text details for non-JSON body, got %v", err.Details)
	}

	err = normalizeStatus(500, jsonHeader, []byte("not json"), "cid")
	if err.Details != "not json" {
		t.Errorf("Expected raw fallback for unparseable JSON, got %v", err.Details)
	}
}

func TestNormalizeStatusRetryAfter(t *testing.T) {
	header := http.Header{
		"Content-Type": []string{"application/json"},
		"Retry-After":  []string{"2"},
	}

	err := normalizeStatus(429, header, nil, "cid")
	if err.RetryAfter != 2*time.Second {
		t.Errorf("RetryAfter = %v, want 2s", err.RetryAfter)
	}
}

func TestNormalizeTransport(t *testing.T) {
	bg := context.Background()

	t.Run("caller cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(bg)
		cancel()
		err := normalizeTransport(ctx, &url.Error{Op: "Get", URL: "http://x", Err: context.Canceled}, "cid")
		if err.Code != CodeAborted {
			t.Errorf("code = %s, want ABORTED", err.Code)
		}
		if err.Retriable {
			t.Error("ABORTED must not be retriable")
		}
	})

	t.Run("deadline", func(t *testing.T) {
		err := normalizeTransport(bg, &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}, "cid")
		if err.Code != CodeTimeout {
			t.Errorf("code = %s, want TIMEOUT", err.Code)
		}
		if !err.Retriable {
			t.Error("TIMEOUT must be retriable")
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		err := normalizeTransport(bg, &url.Error{Op: "Get", URL: "http://x", Err: errors.New("connection refused")}, "cid")
		if err.Code != CodeNetworkError {
			t.Errorf("code = %s, want NETWORK_ERROR", err.Code)
		}
		if !err.Retriable {
			t.Error("NETWORK_ERROR must be retriable")
		}
	})

	t.Run("unrecognized error", func(t *testing.T) {
		err := normalizeTransport(bg, errors.New("something odd"), "cid")
		if err.Code != CodeUnknown {
			t.Errorf("code = %s, want UNKNOWN", err.Code)
		}
		if err.Retriable {
			t.Error("UNKNOWN must not be retriable")
		}
	})

	t.Run("passthrough", func(t *testing.T) {
		original := newError(CodeServerError, "boom", "cid")
		err := normalizeTransport(bg, original, "other")
		if err != original {
			t.Error("Expected existing APIError to pass through unchanged")
		}
	})
}

func TestRetriableCode(t *testing.T) {
	retriable := []ErrorCode{CodeNetworkError, CodeTimeout, CodeRateLimited, CodeServerError}
	terminal := []ErrorCode{CodeAborted, CodeValidationError, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict, CodeUnknown}

	for _, code := range retriable {
		if !RetriableCode(code) {
			t.Errorf("Expected %s to be retriable", code)
		}
	}
	for _, code := range terminal {
		if RetriableCode(code) {
			t.Errorf("Expected %s to be terminal", code)
		}
	}
}

func TestAPIErrorError(t *testing.T) {
	err := &APIError{Code: CodeServerError, Message: "internal error", CorrelationID: "cid", StatusCode: 500}

	msg := err.Error()
	if msg != "[cid] SERVER_ERROR: internal error (status 500)" {
		t.Errorf("Unexpected error string: %q", msg)
	}

	var nilErr *APIError
	if nilErr.Error() != "<nil>" {
		t.Errorf("Expected <nil> for nil error, got %q", nilErr.Error())
	}
}

func TestAPIErrorUnwrapAndIs(t *testing.T) {
	cause := errors.New("socket closed")
	err := &APIError{Code: CodeNetworkError, Message: "network request failed", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}
	if !errors.Is(err, &APIError{Code: CodeNetworkError}) {
		t.Error("Expected code-based matching via errors.Is")
	}
	if errors.Is(err, &APIError{Code: CodeTimeout}) {
		t.Error("Expected mismatched codes not to match")
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(newError(CodeTimeout, "t", "")) {
		t.Error("Expected TIMEOUT to be transient")
	}
	if IsTransient(newError(CodeConflict, "c", "")) {
		t.Error("Expected CONFLICT not to be transient")
	}
	if IsTransient(errors.New("plain")) {
		t.Error("Expected plain errors not to be transient")
	}
	if IsTransient(nil) {
		t.Error("Expected nil not to be transient")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("empty = %v, want 0", got)
	}
	if got := parseRetryAfter("3"); got != 3*time.Second {
		t.Errorf("seconds = %v, want 3s", got)
	}
	if got := parseRetryAfter("-1"); got != 0 {
		t.Errorf("negative = %v, want 0", got)
	}
	if got := parseRetryAfter("999999"); got != time.Hour {
		t.Errorf("huge = %v, want capped at 1h", got)
	}
	if got := parseRetryAfter("garbage"); got != 0 {
		t.Errorf("garbage = %v, want 0", got)
	}

	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(future); got <= 0 || got > 30*time.Second {
		t.Errorf("http-date = %v, want within (0, 30s]", got)
	}
}
