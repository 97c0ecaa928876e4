package protocol

import "errors"

var (
	ErrInvalidEnvelope  = errors.New("protocol: invalid envelope")
	ErrInvalidCall      = errors.New("protocol: invalid call payload")
	ErrInvalidResponse  = errors.New("protocol: invalid response payload")
	ErrEnvelopeTooLarge = errors.New("protocol: envelope too large")
)
