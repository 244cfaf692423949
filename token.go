package apix

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenProvider produces a bearer token for outgoing requests. Returning an
// empty token with a nil error means "no token available" and the request
// proceeds without an Authorization header. Errors are contained: the request
// still proceeds, the failure is logged and counted, and any downstream 401
// surfaces as UNAUTHORIZED through the normal taxonomy.
type TokenProvider func(ctx context.Context) (string, error)

// tokenState is the explicit outcome of a token resolution. Absent and failed
// both proceed without the header; failed is observed distinctly.
type tokenState int

const (
	tokenPresent tokenState = iota
	tokenAbsent
	tokenFailed
)

// resolveToken runs the provider and collapses its result into a three-state
// outcome.
func resolveToken(ctx context.Context, provider TokenProvider) (string, tokenState, error) {
	if provider == nil {
		return "", tokenAbsent, nil
	}
	token, err := provider(ctx)
	if err != nil {
		return "", tokenFailed, err
	}
	if token == "" {
		return "", tokenAbsent, nil
	}
	return token, tokenPresent, nil
}

// StaticTokenProvider returns a provider that always yields the given token.
func StaticTokenProvider(token string) TokenProvider {
	return func(context.Context) (string, error) {
		return token, nil
	}
}

// OAuth2TokenProvider adapts an oauth2.TokenSource (e.g. a client credentials
// config) into a TokenProvider. Token refresh and caching are the source's
// concern.
func OAuth2TokenProvider(source oauth2.TokenSource) TokenProvider {
	return func(context.Context) (string, error) {
		token, err := source.Token()
		if err != nil {
			return "", err
		}
		return token.AccessToken, nil
	}
}
