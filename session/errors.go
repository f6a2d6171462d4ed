package session

import "errors"

// Error kinds returned by the Manager. Every failure is wrapped with one of
// these sentinels so callers can classify with errors.Is without parsing
// messages.
var (
	// ErrAuthorizationFailed means the interactive flow did not complete.
	ErrAuthorizationFailed = errors.New("authorization failed")

	// ErrTokenExchangeFailed means the token endpoint rejected the code
	// exchange or the issued ID token failed verification.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrRefreshFailed means the refresh grant was rejected or unreachable.
	// Terminal for the current session: the user must log in again.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrNoRefreshToken means no persisted refresh token was available when
	// one was required.
	ErrNoRefreshToken = errors.New("no refresh token available")

	// ErrRevocationFailed means a remote revoke call errored. Non-fatal:
	// local state is cleaned up regardless.
	ErrRevocationFailed = errors.New("token revocation failed")

	// ErrStorage means the secure storage layer failed.
	ErrStorage = errors.New("secure storage error")
)

// nonFatalError marks an error as a warning that did not prevent the
// operation's state transition.
type nonFatalError struct {
	err error
}

func (e nonFatalError) Error() string { return e.err.Error() }
func (e nonFatalError) Unwrap() error { return e.err }

func nonFatal(err error) error { return nonFatalError{err: err} }

// IsNonFatal reports whether err is a warning from an operation that still
// completed: logout always clears local state even when remote revocation
// fails, and login keeps the access token usable even when persisting the
// refresh token fails.
func IsNonFatal(err error) bool {
	var nf nonFatalError
	return errors.As(err, &nf)
}
