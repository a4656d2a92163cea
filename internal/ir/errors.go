package ir

import (
	"errors"
	"fmt"
)

// Code categorizes errors raised by tempo packages.
type Code string

const (
	// CodeProtocolViolation indicates a tree writer or reader call made in the
	// wrong state. Always a caller bug.
	CodeProtocolViolation Code = "PROTOCOL_VIOLATION"

	// CodeFormatError indicates malformed id or key text.
	CodeFormatError Code = "FORMAT_ERROR"

	// CodeTypeMismatch indicates a value that cannot be converted to the
	// target type without losing information.
	CodeTypeMismatch Code = "TYPE_MISMATCH"

	// CodeUnsupportedType indicates a value type the target format cannot hold.
	CodeUnsupportedType Code = "UNSUPPORTED_TYPE"

	// CodeUnsupportedKeyType indicates a field type that may not be a key element.
	CodeUnsupportedKeyType Code = "UNSUPPORTED_KEY_TYPE"

	// CodeUnsupportedShape indicates a nesting the target representation has
	// no place for.
	CodeUnsupportedShape Code = "UNSUPPORTED_SHAPE"

	// CodeUnsupportedEncoding indicates input bytes using an encoding feature
	// that is not supported, such as sparse arrays.
	CodeUnsupportedEncoding Code = "UNSUPPORTED_ENCODING"

	// CodeInvalidKeyToken indicates a key element that is empty or contains
	// the key delimiter.
	CodeInvalidKeyToken Code = "INVALID_KEY_TOKEN"

	// CodeDatasetNotFound indicates a dataset name or id that does not resolve.
	CodeDatasetNotFound Code = "DATASET_NOT_FOUND"

	// CodeInvalidImport indicates a dataset import list that breaks the
	// ordering invariant.
	CodeInvalidImport Code = "INVALID_IMPORT"

	// CodeReadOnly indicates a write against a read-only or historical view.
	CodeReadOnly Code = "READ_ONLY"

	// CodeIDExhausted indicates the id generator could not produce an id
	// greater than its predecessor within the retry budget.
	CodeIDExhausted Code = "ID_EXHAUSTED"

	// CodeIDOrder indicates a minted id that is not greater than the id of
	// the dataset the version is written to.
	CodeIDOrder Code = "ID_ORDER"
)

// Error is the structured error type for the tempo error taxonomy.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Op names the call that failed, e.g. "WriteEndArray".
	Op string

	// State is the protocol state at the time of the failure, if any.
	State string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.State != "":
		return fmt.Sprintf("%s: %s in state %s: %s", e.Code, e.Op, e.State, e.Message)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Errorf creates an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// OpErrorf creates an *Error attributed to an operation.
func OpErrorf(code Code, op string, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Is reports whether err, or any error it wraps, is an *Error with code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
