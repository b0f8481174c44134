package myq

import "errors"

// Domain errors for the myq package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotAuthenticated is returned when RefreshDevices or Execute is
	// called before a successful Login.
	ErrNotAuthenticated = errors.New("myq: not authenticated")

	// ErrNoAccount is returned when authentication succeeds but the
	// account listing comes back empty.
	ErrNoAccount = errors.New("myq: no account associated with credentials")

	// ErrRequestFailed is returned for transport-level failures talking
	// to the MyQ cloud.
	ErrRequestFailed = errors.New("myq: request failed")
)
