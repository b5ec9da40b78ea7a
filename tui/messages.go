package tui

import (
	"time"
)

// MsgBanner signals that the banner/title should be displayed.
type MsgBanner struct{}

// MsgBootstrapping signals that the startup session recovery began.
type MsgBootstrapping struct{}

// MsgSessionRecovered signals that the refresh cookie yielded a session.
type MsgSessionRecovered struct{}

// MsgNoSession signals that no session could be recovered at startup.
type MsgNoSession struct{}

// MsgNavigating signals a navigation attempt to Path.
type MsgNavigating struct{ Path string }

// MsgLanded signals that a view was rendered.
type MsgLanded struct {
	Title string
	Path  string
}

// MsgRefreshing signals that a token refresh is in progress.
type MsgRefreshing struct{}

// MsgRefreshOK signals that the token was refreshed successfully.
type MsgRefreshOK struct{}

// MsgRefreshFailed signals that token refresh failed.
type MsgRefreshFailed struct{ Err error }

// MsgAccessTokenRejected signals that the access token was rejected (401).
type MsgAccessTokenRejected struct{}

// MsgTokenRefreshedRetrying signals that the token was refreshed and a retry is starting.
type MsgTokenRefreshedRetrying struct{}

// MsgLoading signals that a view started loading its list endpoint.
type MsgLoading struct{ Resource string }

// MsgLoaded signals that the list endpoint returned Count records.
type MsgLoaded struct{ Count int }

// MsgLoadFailed signals that loading the list endpoint failed.
type MsgLoadFailed struct{ Err error }

// MsgLoginRequired signals that the guard sent the user to the login view.
type MsgLoginRequired struct {
	LoginURL  string
	ReturnURL string
	Notice    string
}

// MsgCallbackCompleted signals that the Google callback navigated to Target.
type MsgCallbackCompleted struct{ Target string }

// MsgLoggedOut signals that the backend session was ended.
type MsgLoggedOut struct{}

// MsgCookiesSaved signals that the cookie jar was written to Path.
type MsgCookiesSaved struct{ Path string }

// MsgCookieSaveFailed signals that writing the cookie jar failed.
type MsgCookieSaveFailed struct{ Err error }

// MsgDone signals successful completion of the session flow.
type MsgDone struct {
	Preview   string
	User      string
	ExpiresIn time.Duration
}

// MsgFatal signals a fatal error that should terminate the flow.
type MsgFatal struct{ Err error }
