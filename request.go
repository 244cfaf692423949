package apix

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
)

// PathParams maps {name} placeholders in a path template to their values.
// Values may be strings, booleans, integers or floats.
type PathParams map[string]any

// QueryParams maps query string keys to their values. Nil and empty-string
// values are dropped; zero and false are kept.
type QueryParams map[string]any

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// formatParam renders a parameter value for use in a URL.
func formatParam(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// interpolatePath substitutes {name} placeholders with percent-encoded values.
// A placeholder with no matching key is left literal and logged as a warning;
// the request still goes out and fails loudly at the backend's router.
func interpolatePath(template string, params PathParams, logger Logger) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := params[name]
		if !ok || value == nil {
			if logger != nil {
				logger.Warn("missing path parameter", "name", name, "template", template)
			}
			return match
		}
		return url.PathEscape(formatParam(value))
	})
}

// buildQuery encodes query parameters, dropping nil and empty-string values.
// Keys are emitted in url.Values' sorted order.
func buildQuery(params QueryParams) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for key, value := range params {
		if value == nil {
			continue
		}
		s := formatParam(value)
		if str, isString := value.(string); isString && str == "" {
			continue
		}
		values.Set(key, s)
	}
	return values.Encode()
}

// buildURL joins the client base URL, the interpolated path and the query
// string into the final request URL.
func (c *Client) buildURL(path string, pathParams PathParams, queryParams QueryParams) string {
	full := c.baseURL + interpolatePath(path, pathParams, c.logger)
	if query := buildQuery(queryParams); query != "" {
		sep := "?"
		for i := 0; i < len(full); i++ {
			if full[i] == '?' {
				sep = "&"
				break
			}
		}
		full += sep + query
	}
	return full
}

// buildHeaders assembles the request headers: content type, correlation ID,
// per-call overrides (caller wins), then bearer token when one resolves. A
// failing token provider is contained — the request proceeds without the
// Authorization header and any downstream 401 surfaces through the taxonomy.
func (c *Client) buildHeaders(ctx context.Context, correlationID string, custom map[string]string) http.Header {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	headers.Set(c.correlationIDHeader, correlationID)
	for key, value := range custom {
		headers.Set(key, value)
	}

	token, state, err := resolveToken(ctx, c.tokenProvider)
	switch state {
	case tokenPresent:
		headers.Set("Authorization", "Bearer "+token)
	case tokenFailed:
		c.metrics.RecordTokenFetchFailure()
		if c.logger != nil {
			c.logger.Warn("token provider failed, proceeding without auth", "correlationId", correlationID, "error", err)
		}
	}
	return headers
}
