package transport

import (
	"errors"

	"github.com/danmuck/framectl/internal/protocol"
)

var (
	ErrListenerInstalled = errors.New("transport: listener already installed")
	ErrUnknownTarget     = errors.New("transport: unknown target")
	ErrClosed            = errors.New("transport: closed")
)

// Inbound is one raw message handed to the installed listener. Origin is the
// sender's declared origin as vouched for (or not) by the transport; Source
// identifies the sending endpoint at the transport level.
type Inbound struct {
	Data   []byte
	Origin protocol.Origin
	Source string
}

// Outbound is one raw message to deliver to the remote context. An empty
// Target addresses the transport's default peer. OriginHint, when not the
// wildcard, scopes delivery to remotes whose origin matches; a mismatch
// drops the message without error, mirroring fire-and-forget semantics.
type Outbound struct {
	Data       []byte
	Target     string
	OriginHint string
}

// Listener receives every inbound message, in transport delivery order.
type Listener func(Inbound)

// Transport is the low-level capability the bridge multiplexes over. At most
// one listener may be installed at a time; the bridge installs exactly one
// for any non-empty channel registry.
type Transport interface {
	Send(msg Outbound) error
	SetListener(fn Listener) error
	ClearListener()
}

// originHintAdmits applies the Outbound.OriginHint rule against a remote's
// known origin.
func originHintAdmits(hint string, remote protocol.Origin) bool {
	return protocol.OriginFilter(hint).Admits(remote)
}
