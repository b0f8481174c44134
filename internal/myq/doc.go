// Package myq implements the client for the MyQ cloud device API.
//
// The bridge never talks to devices directly: garage door openers and lamp
// modules are reachable only through the vendor cloud. This package covers
// the slice of that API the bridge needs (login, account resolution, device
// listing, and command submission) and reports outcomes through Snapshot
// so the session manager can apply its own re-authentication rules.
//
// Authentication rejections are deliberately not Go errors: the upstream
// expresses them as status codes the session layer must inspect (missing
// token → unauthorised, non-200 on refresh → hard failure for that call).
// Errors from this package always mean the request itself failed.
package myq
