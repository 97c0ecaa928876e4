package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reserved envelope types carrying the internal call protocol. Every other
// type value is an application event name.
const (
	TypeCall     = "_async"
	TypeResponse = "_asyncResponse"
)

// MaxEnvelopeSize bounds a single encoded envelope.
const MaxEnvelopeSize = 512 * 1024

// Envelope is the unit delivered across the transport. ChannelID selects the
// logical channel on the receiving side.
type Envelope struct {
	ChannelID string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (e Envelope) Validate() error {
	if strings.TrimSpace(e.ChannelID) == "" {
		return fmt.Errorf("%w: missing channel id", ErrInvalidEnvelope)
	}
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%w: missing type", ErrInvalidEnvelope)
	}
	return nil
}

// Reserved reports whether the envelope carries the internal call protocol
// rather than an application event.
func (e Envelope) Reserved() bool {
	return e.Type == TypeCall || e.Type == TypeResponse
}

// CallPayload is the payload of a TypeCall envelope.
type CallPayload struct {
	CallID  uint64          `json:"id"`
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
}

func (p CallPayload) Validate() error {
	if p.CallID == 0 {
		return fmt.Errorf("%w: missing call id", ErrInvalidCall)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("%w: missing call type", ErrInvalidCall)
	}
	return nil
}

// ResponsePayload is the payload of a TypeResponse envelope. Error is empty
// on success; a non-empty Error denotes a failed call and Response is unset.
type ResponsePayload struct {
	CallID   uint64          `json:"id"`
	Response json.RawMessage `json:"response,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (p ResponsePayload) Validate() error {
	if p.CallID == 0 {
		return fmt.Errorf("%w: missing call id", ErrInvalidResponse)
	}
	if p.Error != "" && len(p.Response) != 0 {
		return fmt.Errorf("%w: both response and error set", ErrInvalidResponse)
	}
	return nil
}

// Failed reports whether the response denotes a call failure.
func (p ResponsePayload) Failed() bool {
	return p.Error != ""
}

// NoHandlerMessage is the error text returned to a caller when the receiving
// side has no handler registered for the call type.
func NoHandlerMessage(callType string) string {
	return fmt.Sprintf("No Handler for Event %q", callType)
}
