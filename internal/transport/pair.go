package transport

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/protocol"
)

const defaultPairQueue = 64

// PairConfig names the two linked endpoints and the origin each declares to
// the other side. Zero values get sensible defaults; origins default to the
// unverifiable tier, matching a sandboxed context.
type PairConfig struct {
	LeftID      string
	RightID     string
	LeftOrigin  protocol.Origin
	RightOrigin protocol.Origin
	QueueSize   int
}

// PairEndpoint is one side of an in-process transport pair. Messages sent on
// one endpoint arrive at the other asynchronously, in send order, on a
// single delivery goroutine.
type PairEndpoint struct {
	id     string
	origin protocol.Origin
	peer   *PairEndpoint

	queue chan Inbound
	done  chan struct{}

	mu       sync.Mutex
	listener Listener
	closed   bool
}

var _ Transport = (*PairEndpoint)(nil)

// NewPair builds two linked in-process endpoints.
func NewPair(cfg PairConfig) (*PairEndpoint, *PairEndpoint) {
	if cfg.LeftID == "" {
		cfg.LeftID = "pair.left"
	}
	if cfg.RightID == "" {
		cfg.RightID = "pair.right"
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultPairQueue
	}

	left := newPairEndpoint(cfg.LeftID, cfg.LeftOrigin, cfg.QueueSize)
	right := newPairEndpoint(cfg.RightID, cfg.RightOrigin, cfg.QueueSize)
	left.peer = right
	right.peer = left

	go left.deliverLoop()
	go right.deliverLoop()
	return left, right
}

func newPairEndpoint(id string, origin protocol.Origin, queueSize int) *PairEndpoint {
	return &PairEndpoint{
		id:     id,
		origin: origin,
		queue:  make(chan Inbound, queueSize),
		done:   make(chan struct{}),
	}
}

func (e *PairEndpoint) ID() string {
	return e.id
}

// PeerID returns the transport identity of the linked endpoint, usable as a
// send target and as the expected source of inbound messages.
func (e *PairEndpoint) PeerID() string {
	return e.peer.id
}

func (e *PairEndpoint) Send(msg Outbound) error {
	if msg.Target != "" && msg.Target != e.peer.id {
		return ErrUnknownTarget
	}
	if !originHintAdmits(msg.OriginHint, e.peer.origin) {
		log.Debug().
			Str("endpoint", e.id).
			Str("origin_hint", msg.OriginHint).
			Msg("pair send dropped by origin hint")
		return nil
	}

	data := make([]byte, len(msg.Data))
	copy(data, msg.Data)
	inbound := Inbound{Data: data, Origin: e.origin, Source: e.id}

	select {
	case e.peer.queue <- inbound:
		return nil
	case <-e.peer.done:
		return ErrClosed
	case <-e.done:
		return ErrClosed
	}
}

func (e *PairEndpoint) SetListener(fn Listener) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	if e.listener != nil {
		return ErrListenerInstalled
	}
	e.listener = fn
	return nil
}

func (e *PairEndpoint) ClearListener() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = nil
}

// Close stops delivery on this endpoint. Messages still queued are dropped.
func (e *PairEndpoint) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.listener = nil
	e.mu.Unlock()
	close(e.done)
}

func (e *PairEndpoint) deliverLoop() {
	for {
		select {
		case msg := <-e.queue:
			e.mu.Lock()
			fn := e.listener
			e.mu.Unlock()
			if fn != nil {
				fn(msg)
			}
		case <-e.done:
			return
		}
	}
}
