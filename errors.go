package bitvec

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperator is returned when an opcode-driven entry point
	// receives an unknown operator code.
	ErrInvalidOperator = errors.New("invalid operator code")

	// ErrAliasedTarget is returned when a combine target is also passed as
	// an operand where that is disallowed.
	ErrAliasedTarget = errors.New("aliased target")
)

// DecodeError indicates a malformed or truncated BLOB. Offset is the byte
// position at which decoding failed. A vector that was being decoded into
// when the error occurred is safe to discard but must not be used further.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DecodeError struct {
	Offset int
	Msg    string
	cause  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error at offset %d: %s", e.Offset, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.cause }
