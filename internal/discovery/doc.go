// Package discovery owns remote-target readiness signals.
//
// Ownership boundary:
// - watchable readiness contract consumed by host-mode channels
// - manual and static signal implementations
package discovery
