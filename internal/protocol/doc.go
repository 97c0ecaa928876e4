// Package protocol owns the wire contract for bridge envelopes.
//
// Ownership boundary:
// - envelope and call/response payload shapes
// - JSON encode/decode entry points
// - origin trust tiers and filter matching
package protocol
