// Package update implements the background version check.
//
// Once at startup and then hourly, the poller reports its app identifier and
// running version to a remote endpoint; a differing answer sets a sticky
// process-wide flag that the HTTP API surfaces as meta.updateAvailable so
// the hub can tell the operator an upgrade exists. Failures are silent;
// this is strictly best-effort.
package update
