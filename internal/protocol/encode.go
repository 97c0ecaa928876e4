package protocol

import "encoding/json"

// EncodeEnvelope validates and marshals one envelope for the transport.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if len(data) > MaxEnvelopeSize {
		return nil, ErrEnvelopeTooLarge
	}
	return data, nil
}

// EncodeCall wraps a call payload in a TypeCall envelope for channelID.
func EncodeCall(channelID string, call CallPayload) ([]byte, error) {
	if err := call.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(call)
	if err != nil {
		return nil, err
	}
	return EncodeEnvelope(Envelope{
		ChannelID: channelID,
		Type:      TypeCall,
		Payload:   payload,
	})
}

// EncodeResponse wraps a response payload in a TypeResponse envelope.
func EncodeResponse(channelID string, resp ResponsePayload) ([]byte, error) {
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return EncodeEnvelope(Envelope{
		ChannelID: channelID,
		Type:      TypeResponse,
		Payload:   payload,
	})
}

// EncodeEvent wraps an already-marshaled event payload in a plain envelope.
func EncodeEvent(channelID, eventType string, payload json.RawMessage) ([]byte, error) {
	return EncodeEnvelope(Envelope{
		ChannelID: channelID,
		Type:      eventType,
		Payload:   payload,
	})
}
