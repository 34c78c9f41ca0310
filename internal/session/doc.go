// Package session keeps per-visitor UI state: which insight and
// recommendation panels are open and the recommendation text generated for
// each plot. A visitor is identified by a cookie and every visitor gets an
// isolated, mutex-guarded store that expires after a period of inactivity.
package session
