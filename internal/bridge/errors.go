package bridge

import "errors"

var (
	ErrInvalidChannelID  = errors.New("bridge: invalid channel id")
	ErrReservedType      = errors.New("bridge: reserved message type")
	ErrCallTimeout       = errors.New("bridge: call timed out")
	ErrTargetUnavailable = errors.New("bridge: remote target unavailable")
	ErrChannelDestroyed  = errors.New("bridge: channel destroyed")
)

// CallError carries a failure transmitted by the remote side of a call:
// either a handler error or the no-handler rejection.
type CallError struct {
	Message string
}

func (e *CallError) Error() string {
	return e.Message
}
