// Package errors defines the sentinel and typed errors shared across the
// relay. Structural and validation errors abort the call that produced them
// with no state change; forwarded-call failures are never modelled as
// errors and travel as data instead.
package errors

import (
	sterrors "errors"
	"fmt"
	"math/big"

	"github.com/relayflow/relayflow/internal/runtime/types"
)

var (
	ErrServiceRequired      = sterrors.New("relayflow: relay service is required")
	ErrHandlerRequired      = sterrors.New("relayflow: handler function is required")
	ErrConsumeTopicRequired = sterrors.New("relayflow: consume topic is required")
	ErrHandlerNameRequired  = sterrors.New("relayflow: handler name is required")
	ErrPublisherRequired    = sterrors.New("relayflow: publisher is required")
	ErrTopicRequired        = sterrors.New("relayflow: topic is required")
	ErrConfigRequired       = sterrors.New("relayflow: configuration is required")
	ErrLoggerRequired       = sterrors.New("relayflow: logger is required")
	ErrRegistryRequired     = sterrors.New("relayflow: routing registry is required")
	ErrTargetCallerRequired = sterrors.New("relayflow: target caller is required")
	ErrPayloadRequired      = sterrors.New("relayflow: payload is required")
	ErrDispatcherRequired   = sterrors.New("relayflow: dispatcher is required")
)

// StructuralDecodeError reports a payload that is shorter than the minimum
// message size or whose length prefixes point past the end of the buffer.
type StructuralDecodeError struct {
	Field  string // field being read when the buffer ran out
	Offset int    // read position in the payload
	Need   int    // bytes the field required
	Have   int    // bytes remaining
}

func (e *StructuralDecodeError) Error() string {
	return fmt.Sprintf("relayflow: malformed payload: %s at offset %d needs %d bytes, %d remain",
		e.Field, e.Offset, e.Need, e.Have)
}

// FieldWidthError reports a length prefix that differs from the fixed width
// the strict execution path requires.
type FieldWidthError struct {
	Field string
	Want  int
	Got   int
}

func (e *FieldWidthError) Error() string {
	return fmt.Sprintf("relayflow: %s must be %d bytes, declared %d", e.Field, e.Want, e.Got)
}

// BudgetExceededError reports a declared execution budget at or above the
// pre-validation ceiling.
type BudgetExceededError struct {
	Budget  *big.Int
	Ceiling uint64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("relayflow: declared budget %s is not below ceiling %d", e.Budget, e.Ceiling)
}

// DepositorMismatchError reports a payload whose embedded depositor field
// disagrees with the depositor the caller supplied. The check binds a
// payload to its declared submitter so one identity cannot submit on behalf
// of another.
type DepositorMismatchError struct {
	Declared []byte // raw depositor field from the payload
	Supplied types.Address
}

func (e *DepositorMismatchError) Error() string {
	return fmt.Sprintf("relayflow: payload depositor %#x does not match supplied depositor %s",
		e.Declared, e.Supplied)
}

// UnauthorizedCallerError reports an invocation by anyone other than the
// configured bridge caller.
type UnauthorizedCallerError struct {
	Caller types.Address
}

func (e *UnauthorizedCallerError) Error() string {
	return fmt.Sprintf("relayflow: caller %s is not the bridge", e.Caller)
}

// MetadataError reports a message header that is missing or cannot be
// parsed. Like payload decode failures, redelivery cannot fix it.
type MetadataError struct {
	Key string
	Err error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("relayflow: metadata %s: %v", e.Key, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }

// UnknownResourceError reports a resource identifier with no routing entry.
type UnknownResourceError struct {
	ResourceID types.ResourceID
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("relayflow: no handler registered for resource %s", e.ResourceID)
}

// ConfigValidationError wraps configuration problems detected before the
// relay starts.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return "relayflow: invalid configuration: " + e.Err.Error()
}

func (e ConfigValidationError) Unwrap() error { return e.Err }

// NewConfigValidationError wraps err in a ConfigValidationError, or returns
// nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}

// IsValidation reports whether err is one of the decode/validation errors
// that must never be retried: resubmitting the same payload cannot succeed.
func IsValidation(err error) bool {
	var (
		structural *StructuralDecodeError
		width      *FieldWidthError
		budget     *BudgetExceededError
		depositor  *DepositorMismatchError
		meta       *MetadataError
	)
	return sterrors.As(err, &structural) ||
		sterrors.As(err, &width) ||
		sterrors.As(err, &budget) ||
		sterrors.As(err, &depositor) ||
		sterrors.As(err, &meta)
}
