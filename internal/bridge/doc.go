// Package bridge owns the message-correlation and multiplexing core.
//
// Ownership boundary:
// - channel registry and shared-listener lifecycle
// - inbound dispatch, validation, and routing
// - pending-call correlation and timeouts
// - per-channel handler tables and event sinks
//
// One registry serves one transport. Every raw inbound message flows through
// the registry's dispatcher, which resolves the target channel by identifier
// and either emits a local event, executes a registered call handler, or
// settles a pending call.
package bridge
