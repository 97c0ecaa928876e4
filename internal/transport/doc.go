// Package transport owns the raw message-passing capability between two
// isolated execution contexts.
//
// Ownership boundary:
// - send/listen contract consumed by the bridge
// - in-process pair transport
// - websocket transport (host and guest endpoints)
//
// A transport delivers opaque byte messages in order, annotates each with a
// declared origin and a source identity, and makes no delivery guarantees
// beyond that.
package transport
