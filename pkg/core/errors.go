package core

import (
	"errors"
	"fmt"
	"reflect"
)

// Construction errors
var (
	ErrNilFunction             = errors.New("bridge: function cannot be nil")
	ErrNotFunction             = errors.New("bridge: value is not a function")
	ErrInvalidShape            = errors.New("bridge: unsupported function shape")
	ErrIgnoredIndexOutOfRange  = errors.New("bridge: ignored index out of range")
	ErrTooManyParameters       = errors.New("bridge: function has too many parameters")
	ErrVariadicFunction        = errors.New("bridge: variadic functions are not supported")
	ErrUnsupportedReturnValues = errors.New("bridge: function must return (), T, error or (T, error)")
)

// Invocation and boundary errors
var (
	ErrArgumentCount     = errors.New("bridge: argument count mismatch")
	ErrDeserialize       = errors.New("bridge: argument deserialization failed")
	ErrHandleReleased    = errors.New("bridge: handle released")
	ErrUnknownHandle     = errors.New("bridge: unknown handle")
	ErrInvalidHandleID   = errors.New("bridge: invalid handle id")
	ErrUnknownMethod     = errors.New("bridge: unknown method")
	ErrArgumentTooLarge  = errors.New("bridge: argument exceeds size limit")
	ErrFunctionPanicked  = errors.New("bridge: wrapped function panicked")
	ErrTableClosed       = errors.New("bridge: handle table closed")
	ErrHandleNotRecorded = errors.New("bridge: handle not found in ledger")
)

// ArgumentCountError reports a payload whose length differs from the
// wrapped function's arity.
type ArgumentCountError struct {
	Want int
	Got  int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("bridge: argument count mismatch: want %d, got %d", e.Want, e.Got)
}

func (e *ArgumentCountError) Is(target error) bool {
	return target == ErrArgumentCount
}

// DeserializeError reports an argument whose text could not be decoded into
// its declared parameter type.
type DeserializeError struct {
	Index int
	Type  reflect.Type
	Err   error
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("bridge: argument %d: cannot decode into %v: %v", e.Index, e.Type, e.Err)
}

func (e *DeserializeError) Unwrap() error {
	return e.Err
}

func (e *DeserializeError) Is(target error) bool {
	return target == ErrDeserialize
}

// PanicError carries a panic recovered at the boundary.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("bridge: wrapped function panicked: %v", e.Value)
}

func (e *PanicError) Is(target error) bool {
	return target == ErrFunctionPanicked
}
