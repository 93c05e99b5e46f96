package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotJoined      = "not_joined"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeForbidden      = "forbidden"
	ErrCodeStorage        = "storage_unavailable"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeInvalidMessage = "invalid_message"
)

var (
	// ErrValidation marks input rejected before any side effect.
	ErrValidation = errors.New("validation error")
	// ErrStorage marks a submission aborted because persistence failed.
	ErrStorage = errors.New("storage error")

	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrSlowConsumer is reported when a channel's event buffer is full.
	ErrSlowConsumer = errors.New("slow consumer")
	// ErrChannelClosed is reported when delivering to a closed channel.
	ErrChannelClosed = errors.New("channel closed")
)

// CoreError wraps a code and human-readable message.
// errors.Is matches it against ErrValidation or ErrStorage.
type CoreError struct {
	Code    string
	Message string

	kind  error
	cause error
}

func (e *CoreError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Is reports whether target is the error kind.
func (e *CoreError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

func (e *CoreError) Unwrap() error {
	return e.cause
}

// NewError builds a CoreError without a kind, for transport-level failures.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

func validationError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg, kind: ErrValidation}
}

func storageError(cause error) *CoreError {
	return &CoreError{Code: ErrCodeStorage, Message: "message storage unavailable", kind: ErrStorage, cause: cause}
}

// DeliveryWarning describes a failed live delivery to one channel.
// It is logged and never returned to the sender.
type DeliveryWarning struct {
	ChannelID string
	OwnerID   string
	MessageID string
	Err       error
}

func (w *DeliveryWarning) Error() string {
	return fmt.Sprintf("deliver message %s to channel %s: %v", w.MessageID, w.ChannelID, w.Err)
}

func (w *DeliveryWarning) Unwrap() error {
	return w.Err
}
