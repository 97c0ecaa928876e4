package protocol

import (
	"encoding/json"
	"fmt"
)

// DecodeEnvelope parses one raw transport message into an envelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	if len(data) > MaxEnvelopeSize {
		return Envelope{}, ErrEnvelopeTooLarge
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := env.Validate(); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// DecodeCall parses the payload of a TypeCall envelope.
func DecodeCall(env Envelope) (CallPayload, error) {
	if env.Type != TypeCall {
		return CallPayload{}, fmt.Errorf("%w: unexpected type %q", ErrInvalidCall, env.Type)
	}
	var call CallPayload
	if err := json.Unmarshal(env.Payload, &call); err != nil {
		return CallPayload{}, fmt.Errorf("%w: %v", ErrInvalidCall, err)
	}
	if err := call.Validate(); err != nil {
		return CallPayload{}, err
	}
	return call, nil
}

// DecodeResponse parses the payload of a TypeResponse envelope.
func DecodeResponse(env Envelope) (ResponsePayload, error) {
	if env.Type != TypeResponse {
		return ResponsePayload{}, fmt.Errorf("%w: unexpected type %q", ErrInvalidResponse, env.Type)
	}
	var resp ResponsePayload
	if err := json.Unmarshal(env.Payload, &resp); err != nil {
		return ResponsePayload{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if err := resp.Validate(); err != nil {
		return ResponsePayload{}, err
	}
	return resp, nil
}
