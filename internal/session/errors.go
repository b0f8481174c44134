package session

import "errors"

// Domain errors for the session package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, session.ErrUnauthorized) {
//	    // surface HTTP 401 to the hub
//	}
var (
	// ErrMissingCredentials is returned when either email or password is
	// empty or absent.
	ErrMissingCredentials = errors.New("session: missing username or password")

	// ErrUnauthorized is returned when the upstream rejects a login:
	// after the call, no access token is present.
	ErrUnauthorized = errors.New("session: login failed")

	// ErrRefreshFailed is returned when a session exists but the upstream
	// reports a non-success status. Hard failure for that call; the next
	// call starts over.
	ErrRefreshFailed = errors.New("session: refresh failed")

	// ErrNoActiveSession is returned when a command is attempted with no
	// access token.
	ErrNoActiveSession = errors.New("session: no active login token")

	// ErrCommandFailed is returned when the upstream reports a command
	// was not accepted.
	ErrCommandFailed = errors.New("session: command rejected by upstream")
)
