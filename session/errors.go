package session

import "errors"

var (
	// ErrAuthenticationFailed indicates that the refresh credential is
	// missing, expired or was rejected by the backend.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrAuthorizationFailed indicates that the backend rejected the access
	// token of an individual request, even after a refresh.
	ErrAuthorizationFailed = errors.New("authorization failed")

	// ErrNetworkFailure indicates a transport-level failure talking to the
	// backend.
	ErrNetworkFailure = errors.New("network failure")
)

// IsNetworkFailure reports whether err stems from the transport.
func IsNetworkFailure(err error) bool {
	return errors.Is(err, ErrNetworkFailure)
}
