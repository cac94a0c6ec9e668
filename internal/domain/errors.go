package domain

import "errors"

var (
	// ErrBadMethod rejects HTTP verbs outside GET/POST/PUT/DELETE before any network I/O.
	ErrBadMethod = errors.New("provider: bad HTTP method")
	// ErrBadCredentials is the uniform caller-facing error for upstream >= 400 responses.
	ErrBadCredentials = errors.New("provider: bad credentials")
	// ErrTokenRefused indicates the token endpoint rejected a grant exchange.
	ErrTokenRefused = errors.New("oauth: access token refused")
	// ErrOAuthNotConfigured signals missing client_id/client_secret at app scope.
	ErrOAuthNotConfigured = errors.New("oauth: client credentials not configured")
	// ErrInvalidState indicates the OAuth callback state is missing or does not match.
	ErrInvalidState = errors.New("oauth: invalid state")
)
