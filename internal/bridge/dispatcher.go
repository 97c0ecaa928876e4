package bridge

import (
	"github.com/rs/zerolog/log"

	"github.com/danmuck/framectl/internal/observability"
	"github.com/danmuck/framectl/internal/protocol"
	"github.com/danmuck/framectl/internal/transport"
)

// dispatch is the single inbound-message listener shared by every channel on
// this registry. Messages that fail validation are dropped silently: counted
// and debug-logged, never surfaced to the application.
func (r *Registry) dispatch(msg transport.Inbound) {
	env, err := protocol.DecodeEnvelope(msg.Data)
	if err != nil {
		r.drop(observability.DropDecode, "", msg)
		return
	}

	ch, ok := r.lookup(env.ChannelID)
	if !ok {
		r.drop(observability.DropUnknownChannel, env.ChannelID, msg)
		return
	}
	if reason, admitted := ch.admit(msg); !admitted {
		r.drop(reason, env.ChannelID, msg)
		return
	}

	switch env.Type {
	case protocol.TypeCall:
		call, err := protocol.DecodeCall(env)
		if err != nil {
			r.drop(observability.DropPayload, env.ChannelID, msg)
			return
		}
		observability.RecordInbound(observability.InboundCall)
		ch.handleInboundCall(call)

	case protocol.TypeResponse:
		resp, err := protocol.DecodeResponse(env)
		if err != nil {
			r.drop(observability.DropPayload, env.ChannelID, msg)
			return
		}
		observability.RecordInbound(observability.InboundResponse)
		ch.resolveResponse(resp)

	default:
		observability.RecordInbound(observability.InboundEvent)
		ch.sink.dispatch(env.Type, env.Payload)
	}
}

func (r *Registry) drop(reason, channelID string, msg transport.Inbound) {
	observability.RecordDrop(reason)
	log.Debug().
		Str("reason", reason).
		Str("channel", channelID).
		Str("source", msg.Source).
		Str("origin_tier", msg.Origin.Tier.String()).
		Str("origin", msg.Origin.Value).
		Msg("inbound message dropped")
}
