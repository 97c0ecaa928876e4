package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/discovery"
	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/protocol"
	"github.com/danmuck/framectl/internal/transport"
)

// DefaultCallTimeout bounds a call awaiting its response unless the channel
// configures otherwise.
const DefaultCallTimeout = 15 * time.Second

// Mode places a channel on one side of the embedding relationship.
type Mode int

const (
	// ModeGuest runs inside the embedded context; its remote target is
	// fixed (the embedding context).
	ModeGuest Mode = iota
	// ModeHost owns the embedded context and must discover its live
	// target before it can send.
	ModeHost
)

func (m Mode) String() string {
	switch m {
	case ModeHost:
		return "host"
	case ModeGuest:
		return "guest"
	default:
		return "invalid"
	}
}

// Handler serves one inbound call type. The returned value is marshaled into
// the response; a returned error (or panic) is transmitted as the call's
// error payload.
type Handler func(ctx context.Context, message json.RawMessage) (any, error)

// ChannelOptions configure a channel at acquisition. Re-acquiring an
// existing identifier ignores them.
type ChannelOptions struct {
	// OriginFilter admits inbound messages by origin prefix; empty or "*"
	// admits all.
	OriginFilter string
	// CallTimeout overrides DefaultCallTimeout.
	CallTimeout time.Duration
	// Discovery supplies the remote target for host-mode channels.
	Discovery discovery.Signal
	// Target fixes the send target for guest-mode channels; empty uses the
	// transport's default peer.
	Target string
}

type handlerEntry struct {
	fn Handler
}

// Channel is one logical bidirectional endpoint multiplexed over the shared
// transport.
type Channel struct {
	id      string
	mode    Mode
	filter  protocol.OriginFilter
	timeout time.Duration
	reg     *Registry
	sink    *eventSink
	pending *pendingTable
	callSeq atomic.Uint64

	mu          sync.Mutex
	handlers    map[string]*handlerEntry
	target      string
	targetBound bool
	destroyed   bool
	stopWatch   func()
}

func newChannel(reg *Registry, id string, mode Mode, opts ChannelOptions) *Channel {
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	c := &Channel{
		id:       id,
		mode:     mode,
		filter:   protocol.OriginFilter(opts.OriginFilter),
		timeout:  timeout,
		reg:      reg,
		sink:     newEventSink(),
		pending:  newPendingTable(),
		handlers: make(map[string]*handlerEntry),
	}
	if mode == ModeGuest {
		c.target = opts.Target
		c.targetBound = true
	}
	return c
}

// ID returns the channel identifier.
func (c *Channel) ID() string {
	return c.id
}

// Mode returns which side of the embedding relationship this channel is.
func (c *Channel) Mode() Mode {
	return c.mode
}

// Emit sends a fire-and-forget event to the remote side. Reserved internal
// types cannot be emitted.
func (c *Channel) Emit(eventType string, message any) error {
	if eventType == protocol.TypeCall || eventType == protocol.TypeResponse {
		return fmt.Errorf("%w: %q", ErrReservedType, eventType)
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	data, err := protocol.EncodeEvent(c.id, eventType, payload)
	if err != nil {
		return err
	}
	return c.sendRaw(data)
}

// On registers a listener for an inbound event type and returns its removal
// function. Listeners run synchronously on receipt, in registration order.
func (c *Channel) On(eventType string, fn Listener) (remove func()) {
	id := c.sink.add(eventType, fn)
	return func() {
		c.sink.remove(eventType, id)
	}
}

// Call sends a request and blocks until the matching response arrives, the
// channel's call timeout elapses, ctx is done, or the channel is destroyed.
// Exactly one of those terminates the call; a response arriving afterwards
// is ignored.
func (c *Channel) Call(ctx context.Context, callType string, message any) (json.RawMessage, error) {
	msg, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil, ErrChannelDestroyed
	}
	c.mu.Unlock()

	id := c.callSeq.Add(1)
	pc := &pendingCall{
		result:  make(chan callResult, 1),
		started: time.Now(),
	}
	c.pending.add(id, pc)
	pc.timer = time.AfterFunc(c.timeout, func() {
		c.expireCall(id)
	})

	data, err := protocol.EncodeCall(c.id, protocol.CallPayload{
		CallID:  id,
		Type:    callType,
		Message: msg,
	})
	if err == nil {
		err = c.sendRaw(data)
	}
	if err != nil {
		if _, ok := c.pending.take(id); ok {
			pc.timer.Stop()
			observability.CallFinished(observability.CallRejected, time.Since(pc.started))
		}
		return nil, err
	}

	select {
	case res := <-pc.result:
		return res.value, res.err
	case <-ctx.Done():
		if _, ok := c.pending.take(id); ok {
			pc.timer.Stop()
			observability.CallFinished(observability.CallCancelled, time.Since(pc.started))
			return nil, ctx.Err()
		}
		// Lost the race against a terminal outcome; report it instead.
		res := <-pc.result
		return res.value, res.err
	}
}

// HandleCall registers the handler for an inbound call type, replacing any
// previous registration. The returned function deregisters the handler only
// if it is still the current one.
func (c *Channel) HandleCall(callType string, h Handler) (remove func()) {
	entry := &handlerEntry{fn: h}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return func() {}
	}
	c.handlers[callType] = entry
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.handlers[callType] == entry {
			delete(c.handlers, callType)
		}
	}
}

// Destroy tears the channel down: stops target discovery, detaches all event
// listeners, rejects the channel's pending calls, and removes it from the
// registry (detaching the shared transport listener if this was the last
// channel). Idempotent.
func (c *Channel) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	stop := c.stopWatch
	c.stopWatch = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	c.sink.clear()
	for _, pc := range c.pending.drain() {
		pc.settle(callResult{err: ErrChannelDestroyed}, observability.CallDestroyed)
	}
	c.reg.release(c.id)
	log.Debug().Str("channel", c.id).Msg("channel destroyed")
}

// admit applies the per-channel security checks to one inbound message.
func (c *Channel) admit(msg transport.Inbound) (dropReason string, ok bool) {
	if !c.filter.Admits(msg.Origin) {
		return observability.DropOrigin, false
	}
	if c.mode == ModeHost {
		c.mu.Lock()
		bound, target := c.targetBound, c.target
		c.mu.Unlock()
		if !bound || msg.Source != target {
			return observability.DropSource, false
		}
	}
	return "", true
}

// sendRaw delivers one encoded envelope to the remote side. Host-mode
// channels fail until a target is bound.
func (c *Channel) sendRaw(data []byte) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrChannelDestroyed
	}
	target := c.target
	bound := c.targetBound
	c.mu.Unlock()

	if !bound {
		return ErrTargetUnavailable
	}
	return c.reg.tr.Send(transport.Outbound{
		Data:       data,
		Target:     target,
		OriginHint: string(c.filter),
	})
}

// bindTarget is the discovery watch callback.
func (c *Channel) bindTarget(target string, ok bool) {
	c.mu.Lock()
	c.target = target
	c.targetBound = ok
	c.mu.Unlock()
	log.Debug().Str("channel", c.id).Str("target", target).Bool("bound", ok).Msg("target update")
}

func (c *Channel) setStopWatch(stop func()) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		stop()
		return
	}
	c.stopWatch = stop
	c.mu.Unlock()
}

func (c *Channel) handler(callType string) (Handler, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.handlers[callType]
	if !ok {
		return nil, false
	}
	return entry.fn, true
}

// handleInboundCall executes one inbound call and always sends back exactly
// one response envelope, success or failure.
func (c *Channel) handleInboundCall(call protocol.CallPayload) {
	resp := protocol.ResponsePayload{CallID: call.CallID}

	if h, ok := c.handler(call.Type); !ok {
		resp.Error = protocol.NoHandlerMessage(call.Type)
	} else {
		value, err := invokeHandler(h, call.Message)
		if err != nil {
			resp.Error = err.Error()
		} else if raw, mErr := json.Marshal(value); mErr != nil {
			resp.Error = mErr.Error()
		} else {
			resp.Response = raw
		}
	}

	data, err := protocol.EncodeResponse(c.id, resp)
	if err == nil {
		err = c.sendRaw(data)
	}
	if err != nil {
		log.Warn().Err(err).Str("channel", c.id).Uint64("call", call.CallID).
			Msg("failed to send call response")
	}
}

// invokeHandler captures handler errors and panics so a failing handler can
// never take down the dispatcher.
func invokeHandler(h Handler, message json.RawMessage) (value any, err error) {
	defer func() {
		if p := recover(); p != nil {
			value = nil
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(context.Background(), message)
}

// resolveResponse settles the pending call named by the response, if any.
// Unknown ids (already timed out, cancelled, or never issued) are inert.
func (c *Channel) resolveResponse(resp protocol.ResponsePayload) {
	pc, ok := c.pending.take(resp.CallID)
	if !ok {
		log.Debug().Str("channel", c.id).Uint64("call", resp.CallID).Msg("late or unknown response")
		return
	}
	if resp.Failed() {
		pc.settle(callResult{err: &CallError{Message: resp.Error}}, observability.CallRejected)
		return
	}
	pc.settle(callResult{value: resp.Response}, observability.CallResolved)
}

func (c *Channel) expireCall(id uint64) {
	pc, ok := c.pending.take(id)
	if !ok {
		return
	}
	pc.settle(callResult{err: ErrCallTimeout}, observability.CallTimedOut)
}

// ChannelInfo is a point-in-time snapshot for introspection surfaces.
type ChannelInfo struct {
	ID           string `json:"id"`
	Mode         string `json:"mode"`
	OriginFilter string `json:"origin_filter"`
	TargetBound  bool   `json:"target_bound"`
	PendingCalls int    `json:"pending_calls"`
	Handlers     int    `json:"handlers"`
	Listeners    int    `json:"listeners"`
}

func (c *Channel) info() ChannelInfo {
	c.mu.Lock()
	bound := c.targetBound
	handlers := len(c.handlers)
	c.mu.Unlock()

	filter := string(c.filter)
	if c.filter.Wildcard() {
		filter = protocol.WildcardFilter
	}
	return ChannelInfo{
		ID:           c.id,
		Mode:         c.mode.String(),
		OriginFilter: filter,
		TargetBound:  bound,
		PendingCalls: c.pending.size(),
		Handlers:     handlers,
		Listeners:    c.sink.count(),
	}
}
