// Package session manages the single authenticated session against the MyQ
// cloud API.
//
// The hub supplies credentials on every device poll, so the manager's job is
// deciding between three outcomes on each call: perform a fresh login
// (credentials changed, or nothing succeeded yet), refresh the existing
// session, or reject the call (missing credentials, failed auth). Failures
// are never retried internally; the hub's own polling provides recovery.
package session
