package tui

import (
	"time"
)

// MsgBanner signals that the banner/title should be displayed.
type MsgBanner struct{}

// MsgSessionFound signals that a persisted session was found on this device.
type MsgSessionFound struct{}

// MsgSessionNotFound signals that no persisted session exists (starting fresh).
type MsgSessionNotFound struct{}

// MsgRefreshing signals that a token refresh is in progress.
type MsgRefreshing struct{}

// MsgRefreshOK signals that the access token was refreshed successfully.
type MsgRefreshOK struct{}

// MsgRefreshFailed signals that the token refresh failed.
type MsgRefreshFailed struct{ Err error }

// MsgAuthURLReady signals that the hosted-UI authorization URL is ready for
// the user. Expiry is the deadline for completing the browser flow.
type MsgAuthURLReady struct {
	URL    string
	Expiry time.Time
}

// MsgAuthSuccess signals that the user authorized and tokens were exchanged.
type MsgAuthSuccess struct{}

// MsgSessionSaved signals that the refresh token was persisted securely.
type MsgSessionSaved struct{}

// MsgSessionSaveFailed signals that persisting the refresh token failed.
type MsgSessionSaveFailed struct{ Err error }

// MsgAPIRequest signals that a demo API request is starting.
type MsgAPIRequest struct{ Route string }

// MsgAPICallOK signals that a demo API request succeeded.
type MsgAPICallOK struct{ Route string }

// MsgAPICallFailed signals that a demo API request failed.
type MsgAPICallFailed struct {
	Route string
	Err   error
}

// MsgAccessTokenRejected signals that the API rejected the access token (401).
type MsgAccessTokenRejected struct{}

// MsgTokenRefreshedRetrying signals that the token was refreshed and a retry
// is starting.
type MsgTokenRefreshedRetrying struct{}

// MsgReAuthRequired signals that the refresh token is no longer usable and a
// new interactive login is required.
type MsgReAuthRequired struct{}

// MsgLoggingOut signals that logout (revocation plus local erasure) started.
type MsgLoggingOut struct{}

// MsgRevocationWarning signals that a remote revoke call failed; local state
// was cleared anyway.
type MsgRevocationWarning struct{ Err error }

// MsgLoggedOut signals that logout finished and local state is empty.
type MsgLoggedOut struct{}

// MsgDone signals that a valid session is in place.
type MsgDone struct {
	Preview   string
	TokenType string
	ExpiresIn time.Duration
}

// MsgFatal signals a fatal error that should terminate the flow.
type MsgFatal struct{ Err error }
